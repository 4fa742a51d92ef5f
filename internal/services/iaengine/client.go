package iaengine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"contentstudio/internal/catalog"
	"contentstudio/internal/services"
)

const component = "iaengine"

// maxErrorBody caps how much of a failing response body is kept in errors.
const maxErrorBody = 512

// HTTPDoer describes the HTTP client used by the engine client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches metadata from the generation engine.
type Client struct {
	baseURL string
	client  HTTPDoer
}

// New constructs a client for baseURL. A nil doer uses http.DefaultClient.
func New(baseURL string, client HTTPDoer) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  client,
	}
}

type metaPayload struct {
	Campaigns        json.RawMessage            `json:"campaigns"`
	Clusters         json.RawMessage            `json:"clusters"`
	CampaignClusters map[string]json.RawMessage `json:"campaignClusters"`
}

// extrasPayload holds optional pass-through fields. They are decoded
// separately so an unexpected shape drops the extras instead of the catalog.
type extrasPayload struct {
	Benefits    map[string][]string `json:"benefits"`
	CTAs        map[string][]string `json:"ctas"`
	Subjects    map[string][]string `json:"subjects"`
	ClusterTone map[string]string   `json:"clusterTone"`
}

// FetchCatalog requests /ia/meta. Transport failures and non-2xx responses
// are marked ErrUpstreamUnavailable; payloads without campaigns and clusters
// arrays are marked ErrMalformedDocument.
func (c *Client) FetchCatalog(ctx context.Context) (catalog.Catalog, error) {
	if c.baseURL == "" {
		return catalog.Catalog{}, services.Wrap(services.ErrConfiguration, component, "fetch meta", "meta.base_url is empty", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ia/meta", nil)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("build meta request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		marker := services.ErrUpstreamUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return catalog.Catalog{}, services.Wrap(marker, component, "fetch meta", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return catalog.Catalog{}, services.Wrap(services.ErrUpstreamUnavailable, component, "fetch meta", "read body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(body))
		if len(detail) > maxErrorBody {
			detail = detail[:maxErrorBody]
		}
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return catalog.Catalog{}, services.Wrap(services.ErrUpstreamUnavailable, component, "fetch meta",
			fmt.Sprintf("status %d: %s", resp.StatusCode, detail), nil)
	}
	return parseMeta(body)
}

func parseMeta(body []byte) (catalog.Catalog, error) {
	var payload metaPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return catalog.Catalog{}, services.Wrap(services.ErrMalformedDocument, component, "parse meta", "invalid json", err)
	}
	var extras extrasPayload
	if err := json.Unmarshal(body, &extras); err != nil {
		extras = extrasPayload{}
	}
	campaigns, ok := stringArray(payload.Campaigns)
	if !ok {
		return catalog.Catalog{}, services.Wrap(services.ErrMalformedDocument, component, "parse meta", "campaigns is not an array", nil)
	}
	clusters, ok := stringArray(payload.Clusters)
	if !ok {
		return catalog.Catalog{}, services.Wrap(services.ErrMalformedDocument, component, "parse meta", "clusters is not an array", nil)
	}
	mapping := make(map[string][]string, len(payload.CampaignClusters))
	for campaign, raw := range payload.CampaignClusters {
		list, ok := stringArray(raw)
		if !ok {
			list = []string{}
		}
		mapping[campaign] = list
	}
	return catalog.Catalog{
		Campaigns:        campaigns,
		Clusters:         clusters,
		CampaignClusters: mapping,
		Benefits:         extras.Benefits,
		CTAs:             extras.CTAs,
		Subjects:         extras.Subjects,
		ClusterTone:      extras.ClusterTone,
	}, nil
}

// stringArray decodes a JSON array, rendering non-string elements as text.
func stringArray(raw json.RawMessage) ([]string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var items []any
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case nil:
			out = append(out, "null")
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out, true
}
