// Package apiclient talks to a running studio daemon over HTTP.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"contentstudio/internal/api"
	"contentstudio/internal/batch"
	"contentstudio/internal/catalog"
	"contentstudio/internal/history"
	"contentstudio/internal/services"
)

const component = "apiclient"

const defaultTimeout = 30 * time.Second

// HTTPDoer describes the HTTP client used to reach the daemon.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues requests against the daemon API.
type Client struct {
	baseURL string
	token   string
	client  HTTPDoer
}

// New returns a client for the daemon at baseURL. A bare host:port is
// treated as http. A nil doer uses an http.Client with a 30s timeout.
func New(baseURL, token string, client HTTPDoer) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL != "" && !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: baseURL, token: strings.TrimSpace(token), client: client}
}

// BatchView is a resolved batch document as served by the daemon.
type BatchView struct {
	Document  *batch.Document
	ViewerURL string
}

// Health returns the daemon liveness payload.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.getJSON(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ready returns the daemon readiness payload, including a failing one.
func (c *Client) Ready(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	status, err := c.do(ctx, http.MethodGet, "/ready", nil, "", &resp)
	if err != nil && status != http.StatusServiceUnavailable {
		return nil, err
	}
	return &resp, nil
}

// History lists batches, newest first.
func (c *Client) History(ctx context.Context) ([]history.Row, error) {
	var rows []api.HistoryRow
	if err := c.getJSON(ctx, "/api/history?type=emails_v2", &rows); err != nil {
		return nil, err
	}
	return api.ToHistoryRows(rows), nil
}

// Batch fetches a resolved batch document.
func (c *Client) Batch(ctx context.Context, batchID string) (*BatchView, error) {
	path := "/api/generated/emails_v2/" + url.PathEscape(strings.TrimSpace(batchID)) + "/batch.json"
	var raw json.RawMessage
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, err
	}
	doc, err := batch.DecodeDocument(raw)
	if err != nil {
		return nil, services.Wrap(services.ErrMalformedDocument, component, "batch", batchID, err)
	}
	var viewer struct {
		URL string `json:"_viewerUrl"`
	}
	_ = json.Unmarshal(raw, &viewer)
	return &BatchView{Document: doc, ViewerURL: viewer.URL}, nil
}

// Files lists the objects of a batch folder.
func (c *Client) Files(ctx context.Context, batchID string) (*batch.Listing, error) {
	path := "/api/generated/emails_v2/" + url.PathEscape(strings.TrimSpace(batchID)) + "/files"
	var listing batch.Listing
	if err := c.getJSON(ctx, path, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// Meta fetches the metadata catalog, optionally forcing a refresh.
func (c *Client) Meta(ctx context.Context, refresh bool) (*catalog.Catalog, error) {
	path := "/api/email-v2/meta"
	if refresh {
		path += "?refresh=1"
	}
	var cat catalog.Catalog
	if err := c.getJSON(ctx, path, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// SaveSets replaces the content sets of a batch.
func (c *Client) SaveSets(ctx context.Context, batchID string, sets []batch.ContentSet) (*api.SaveSetsResponse, error) {
	body, err := json.Marshal(api.SaveSetsRequest{Sets: sets})
	if err != nil {
		return nil, fmt.Errorf("encode sets: %w", err)
	}
	var resp api.SaveSetsResponse
	path := "/api/emails-v2/" + url.PathEscape(strings.TrimSpace(batchID))
	if _, err := c.do(ctx, http.MethodPut, path, bytes.NewReader(body), "application/json", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	_, err := c.do(ctx, http.MethodGet, path, nil, "", out)
	return err
}

// do performs a request and decodes a JSON body into out. Non-2xx responses
// are mapped to service error markers and out is still decoded when the body
// allows it.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) (int, error) {
	if c.baseURL == "" {
		return 0, services.Wrap(services.ErrConfiguration, component, "request", "daemon address is empty", nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		marker := services.ErrUpstreamUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return 0, services.Wrap(marker, component, method+" "+path, "request failed", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, services.Wrap(services.ErrUpstreamUnavailable, component, method+" "+path, "read body", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(data) == 0 {
			return resp.StatusCode, nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, services.Wrap(services.ErrMalformedDocument, component, method+" "+path, "decode response", err)
		}
		return resp.StatusCode, nil
	}
	if out != nil {
		_ = json.Unmarshal(data, out)
	}
	return resp.StatusCode, statusError(method+" "+path, resp.StatusCode, data)
}

func statusError(operation string, status int, body []byte) error {
	message := http.StatusText(status)
	var payload api.ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	}
	var marker error
	switch {
	case status == http.StatusNotFound:
		marker = services.ErrNotFound
	case status == http.StatusBadRequest || status == http.StatusUnauthorized ||
		status == http.StatusForbidden || status == http.StatusRequestEntityTooLarge:
		marker = services.ErrValidation
	case status == http.StatusBadGateway:
		marker = services.ErrSigningFailed
	case status == http.StatusGatewayTimeout:
		marker = services.ErrTimeout
	default:
		marker = services.ErrUpstreamUnavailable
	}
	return services.Wrap(marker, component, operation, fmt.Sprintf("status %d: %s", status, message), nil)
}
