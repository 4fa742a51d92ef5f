package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"contentstudio/internal/apiclient"
	"contentstudio/internal/batch"
	"contentstudio/internal/services"
)

func newServer(t *testing.T, handler http.HandlerFunc) *apiclient.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return apiclient.New(srv.URL, "tok", srv.Client())
}

func TestHistorySendsTokenAndParsesRows(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token: %q", r.Header.Get("Authorization"))
		}
		if r.URL.Path != "/api/history" || r.URL.Query().Get("type") != "emails_v2" {
			t.Errorf("unexpected request %s", r.URL)
		}
		_, _ = io.WriteString(w, `[{"batchId":"b2","count":3,"createdAt":"2025-01-02T03:04:05.000Z"},{"batchId":"b1","count":1}]`)
	})

	rows, err := client.History(context.Background())
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(rows) != 2 || rows[0].BatchID != "b2" || rows[0].Count != 3 {
		t.Fatalf("unexpected rows %+v", rows)
	}
	want := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if !rows[0].CreatedAt.Equal(want) || !rows[1].CreatedAt.IsZero() {
		t.Fatalf("unexpected timestamps %v %v", rows[0].CreatedAt, rows[1].CreatedAt)
	}
}

func TestBatchDecodesDocumentAndViewerURL(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generated/emails_v2/b1/batch.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"batchId":"b1","trios":[{"subject":"Hola"}],"_viewerUrl":"https://example.test/b1"}`)
	})
	view, err := client.Batch(context.Background(), "b1")
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if view.ViewerURL != "https://example.test/b1" || len(view.Document.Sets) != 1 || view.Document.Sets[0].Subject != "Hola" {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestErrorStatusesMapToMarkers(t *testing.T) {
	tests := []struct {
		status int
		marker error
	}{
		{http.StatusNotFound, services.ErrNotFound},
		{http.StatusBadRequest, services.ErrValidation},
		{http.StatusUnauthorized, services.ErrValidation},
		{http.StatusBadGateway, services.ErrSigningFailed},
		{http.StatusServiceUnavailable, services.ErrUpstreamUnavailable},
	}
	for _, tt := range tests {
		client := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = io.WriteString(w, `{"ok":false,"error":"batch b9 not found"}`)
		})
		_, err := client.Batch(context.Background(), "b9")
		if !errors.Is(err, tt.marker) {
			t.Fatalf("status %d: expected %v, got %v", tt.status, tt.marker, err)
		}
		if !strings.Contains(err.Error(), "batch b9 not found") {
			t.Fatalf("status %d: expected server message in %v", tt.status, err)
		}
	}
}

func TestSaveSetsPutsJSON(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/emails-v2/b1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Sets []map[string]any `json:"sets"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Sets) != 1 {
			t.Errorf("unexpected body %+v (%v)", body, err)
		}
		_, _ = io.WriteString(w, `{"ok":true,"batchId":"b1","updatedAt":"2025-06-01T10:00:00.000Z"}`)
	})
	resp, err := client.SaveSets(context.Background(), "b1", []batch.ContentSet{{Subject: "nuevo"}})
	if err != nil {
		t.Fatalf("SaveSets: %v", err)
	}
	if !resp.OK || resp.UpdatedAt != "2025-06-01T10:00:00.000Z" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestMetaRefreshQuery(t *testing.T) {
	var gotQuery string
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"campaigns":["Verano"],"clusters":[],"campaignClusters":{},"source":"remote"}`)
	})
	cat, err := client.Meta(context.Background(), true)
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if gotQuery != "refresh=1" || len(cat.Campaigns) != 1 || cat.Source != "remote" {
		t.Fatalf("unexpected catalog %+v (query %q)", cat, gotQuery)
	}
}

func TestReadyReturnsUnavailablePayload(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"status":"unavailable","detail":"bucket unreachable"}`)
	})
	resp, err := client.Ready(context.Background())
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if resp.Status != "unavailable" || resp.Detail != "bucket unreachable" {
		t.Fatalf("unexpected ready payload %+v", resp)
	}
}

func TestNewAddsSchemeToBareAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	defer srv.Close()
	client := apiclient.New(strings.TrimPrefix(srv.URL, "http://"), "", nil)
	resp, err := client.Health(context.Background())
	if err != nil || resp.Status != "ok" {
		t.Fatalf("Health = %+v, %v", resp, err)
	}
}
