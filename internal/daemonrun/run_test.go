package daemonrun_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"contentstudio/internal/config"
	"contentstudio/internal/daemon"
	"contentstudio/internal/daemonrun"
	"contentstudio/internal/services"
	"contentstudio/internal/testsupport"
)

func TestBuildWiresSQLiteBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()
	rt, err := daemonrun.Build(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close()

	if rt.Objects == nil {
		t.Fatal("expected the local backend to serve objects")
	}
	testsupport.PutBatch(t, rt.Store, cfg, "b1", `{"sets":[{"subject":"Hola"}]}`)

	doc, err := rt.Batches.Resolve(ctx, "b1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(doc.Sets) != 1 || doc.Sets[0].Subject != "Hola" {
		t.Fatalf("unexpected document %+v", doc)
	}

	signed, err := rt.URLs.Read(ctx, "emails_v2/b1/batch.json", 0)
	if err != nil {
		t.Fatalf("Read url: %v", err)
	}
	if !strings.HasPrefix(signed, "http://studio.test/objects/dev/emails_v2/b1/batch.json?") {
		t.Fatalf("unexpected signed url %q", signed)
	}

	rows, err := rt.History.List(ctx)
	if err != nil || len(rows) != 1 || rows[0].BatchID != "b1" {
		t.Fatalf("History = %+v, %v", rows, err)
	}

	if got := rt.Catalog.Get(ctx, false); got.Source != "static" || len(got.Campaigns) == 0 {
		t.Fatalf("expected static catalog, got %+v", got)
	}

	families, err := rt.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, family := range families {
		if family.GetName() == "studio_objectstore_operation_duration_seconds" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected object store metrics to be registered")
	}
}

func TestBuildRejectsMissingBucketForGCS(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = config.BackendGCS
	cfg.Storage.Bucket = ""
	_, err := daemonrun.Build(context.Background(), &cfg, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRuntimeServesDaemonRoutes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	rt, err := daemonrun.Build(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close()

	d, err := daemon.New(cfg, rt.Dependencies(), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	rec := httptest.NewRecorder()
	d.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatalf("metrics = %d", rec.Code)
	}
}
