package batch_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"contentstudio/internal/batch"
	"contentstudio/internal/objectkey"
	"contentstudio/internal/objectstore/memstore"
	"contentstudio/internal/services"
	"contentstudio/internal/urls"
)

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newService(store *memstore.Store, mode urls.Mode, publicUploads bool) *batch.Service {
	keys := objectkey.NewResolver("dev")
	materializer := urls.New(keys, store, urls.Options{Bucket: "bkt", ProjectID: "proj", Mode: mode})
	return batch.NewService(store, keys, materializer, batch.Options{
		PublicUploads: publicUploads,
		Now:           func() time.Time { return fixedNow },
	})
}

var publicDirect = urls.Mode{PublicRead: true, Style: urls.StyleDirect}

func TestResolveHydratesImagesFromManifest(t *testing.T) {
	store := memstore.New()
	store.Put("dev/emails_v2/b1/batch.json", []byte(`{"sets":[{"subject":"S","body":{"title":"T","content":"C"}}]}`))
	store.Put("dev/emails_v2/b1/_manifest.json", []byte(`{"images":[{"fileName":"hero.png","sizeDeclared":"1200x600","sizeNormalized":"600x300"}]}`))
	store.Put("dev/emails_v2/b1/hero.png", []byte("png"))
	svc := newService(store, publicDirect, false)

	doc, err := svc.Resolve(context.Background(), "b1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if doc.BatchID != "b1" || doc.Key != "dev/emails_v2/b1/batch.json" {
		t.Fatalf("unexpected document identity %q %q", doc.BatchID, doc.Key)
	}
	if len(doc.Images) != 1 {
		t.Fatalf("expected one hydrated image, got %+v", doc.Images)
	}
	img := doc.Images[0]
	if img.FileName != "hero.png" || !strings.HasSuffix(img.HeroURL, "/b1/hero.png") {
		t.Fatalf("unexpected image %+v", img)
	}
	if !strings.HasPrefix(img.HeroURL, "https://storage.googleapis.com/bkt/dev/emails_v2/") {
		t.Fatalf("expected public direct url, got %q", img.HeroURL)
	}
	if string(img.Meta.SizeDeclared) != `"1200x600"` || string(img.Meta.SizeNormalized) != `"600x300"` {
		t.Fatalf("manifest sizes not carried: %+v", img.Meta)
	}
	if !strings.Contains(img.ConsoleURL, "console.cloud.google.com") {
		t.Fatalf("expected console details url, got %q", img.ConsoleURL)
	}
	if doc.ViewerURL != "https://storage.googleapis.com/bkt/dev/emails_v2/b1/batch.json" {
		t.Fatalf("unexpected viewer url %q", doc.ViewerURL)
	}
}

func TestResolvePrefersUnderscoreBatchOverManifest(t *testing.T) {
	store := memstore.New()
	store.Put("dev/emails_v2/b2/manifest.json", []byte(`{"sets":[{"subject":"from manifest"}]}`))
	store.Put("dev/emails_v2/b2/_batch.json", []byte(`{"sets":[{"subject":"from underscore"}]}`))
	svc := newService(store, publicDirect, false)

	doc, err := svc.Resolve(context.Background(), "b2")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if doc.Key != "dev/emails_v2/b2/_batch.json" || doc.Sets[0].Subject != "from underscore" {
		t.Fatalf("expected _batch.json, got %q %+v", doc.Key, doc.Sets)
	}
}

func TestResolveMissingBatch(t *testing.T) {
	store := memstore.New()
	store.Put("dev/emails_v2/b3/hero.png", []byte("png"))
	svc := newService(store, publicDirect, false)

	_, err := svc.Resolve(context.Background(), "b3")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Resolve(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty id, got %v", err)
	}
}

func TestResolveMalformedDocument(t *testing.T) {
	store := memstore.New()
	store.Put("dev/emails_v2/b4/batch.json", []byte(`{"sets": [`))
	svc := newService(store, publicDirect, false)

	if _, err := svc.Resolve(context.Background(), "b4"); !errors.Is(err, services.ErrMalformedDocument) {
		t.Fatalf("expected malformed document, got %v", err)
	}
}

func TestResolveToleratesBadSetEntriesAndRelativeHero(t *testing.T) {
	store := memstore.New()
	store.Put("dev/emails_v2/b6/batch.json", []byte(`{
		"sets": [{"subject": "S"}, 5],
		"images": [{"heroUrl": "/emails_v2/b6/hero.png?v=b6"}]
	}`))
	svc := newService(store, publicDirect, false)

	doc, err := svc.Resolve(context.Background(), "b6")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(doc.Sets) != 1 || doc.Sets[0].Subject != "S" {
		t.Fatalf("unexpected sets %+v", doc.Sets)
	}
	if len(doc.Images) != 1 {
		t.Fatalf("expected one image, got %+v", doc.Images)
	}
	img := doc.Images[0]
	if img.FileName != "hero.png" || img.HeroURL != "https://storage.googleapis.com/bkt/dev/emails_v2/b6/hero.png" {
		t.Fatalf("expected hero rebuilt from stored link, got %+v", img)
	}
}

func TestResolveKeepsAbsoluteHeroAndIsolatesSigningFailures(t *testing.T) {
	store := memstore.New()
	store.Put("dev/emails_v2/b5/batch.json", []byte(`{
		"images": [
			{"fileName": "a.png", "heroUrl": "https://cdn.example/a.png"},
			{"fileName": "bad.png"},
			{"fileName": "good.png", "heroUrl": "relative/good.png"}
		]
	}`))
	store.FailOn("sign", "dev/emails_v2/b5/bad.png", errors.New("no signing key"))
	svc := newService(store, urls.Mode{PublicRead: false}, false)

	doc, err := svc.Resolve(context.Background(), "b5")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if doc.Images[0].HeroURL != "https://cdn.example/a.png" || doc.Images[0].ConsoleURL != "" {
		t.Fatalf("absolute hero must be trusted as-is, got %+v", doc.Images[0])
	}
	if doc.Images[1].HeroURL != "" {
		t.Fatalf("signing failure must leave hero empty, got %q", doc.Images[1].HeroURL)
	}
	if doc.Images[1].ConsoleURL == "" {
		t.Fatal("console url is derivable even when signing fails")
	}
	good := doc.Images[2].HeroURL
	if !strings.HasPrefix(good, memstore.SignedBase+"dev/emails_v2/b5/good.png") || !strings.Contains(good, "expires=900") {
		t.Fatalf("expected 15 minute signed url, got %q", good)
	}
}

func TestObjectURL(t *testing.T) {
	store := memstore.New()
	svc := newService(store, urls.Mode{PublicRead: false}, false)

	got, err := svc.ObjectURL(context.Background(), "b1", "/img/hero.png")
	if err != nil {
		t.Fatalf("ObjectURL: %v", err)
	}
	if got != memstore.SignedBase+"dev/emails_v2/b1/img/hero.png?expires=600" {
		t.Fatalf("unexpected redirect %q", got)
	}
	if _, err := svc.ObjectURL(context.Background(), "b1", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSaveContentSetsPreservesUnknownFields(t *testing.T) {
	store := memstore.New()
	store.Put("dev/emails_v2/b1/batch.json", []byte(`{"batchId":"b1","trios":[{"subject":"old"}],"images":[],"generator":"v3"}`))
	svc := newService(store, publicDirect, false)

	stamp, err := svc.SaveContentSets(context.Background(), "b1", []batch.ContentSet{
		{ID: "1", Subject: "new", Body: batch.Body{Title: "T", Content: "C"}},
	})
	if err != nil {
		t.Fatalf("SaveContentSets: %v", err)
	}
	if !stamp.Equal(fixedNow) {
		t.Fatalf("unexpected stamp %v", stamp)
	}

	data, _ := store.Bytes("dev/emails_v2/b1/batch.json")
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("stored document invalid: %v", err)
	}
	if _, ok := fields["trios"]; ok {
		t.Fatal("legacy trios should be dropped")
	}
	if string(fields["generator"]) != `"v3"` {
		t.Fatalf("unknown field lost: %s", fields["generator"])
	}
	if !strings.Contains(string(fields["updatedAt"]), "2025-06-01T10:00:00Z") {
		t.Fatalf("updatedAt not stamped: %s", fields["updatedAt"])
	}
	doc, err := svc.Resolve(context.Background(), "b1")
	if err != nil {
		t.Fatalf("Resolve after save: %v", err)
	}
	if doc.Sets[0].Subject != "new" {
		t.Fatalf("saved sets not visible: %+v", doc.Sets)
	}
}

func TestSaveContentSetsErrors(t *testing.T) {
	store := memstore.New()
	svc := newService(store, publicDirect, false)
	ctx := context.Background()

	if _, err := svc.SaveContentSets(ctx, "b1", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.SaveContentSets(ctx, "b1", []batch.ContentSet{{Subject: "x"}}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAttachImagePublicUpload(t *testing.T) {
	store := memstore.New()
	store.Put("dev/emails_v2/b1/batch.json", []byte(`{"images":[{"fileName":"hero.png"}]}`))
	svc := newService(store, publicDirect, true)

	res, err := svc.AttachImage(context.Background(), "b1", batch.Upload{
		Name: "Café Ñandú!.PNG",
		Data: []byte("png-bytes"),
	})
	if err != nil {
		t.Fatalf("AttachImage: %v", err)
	}
	wantName := "manual_1748772000000_cafe-nandu.png"
	if res.Image.FileName != wantName {
		t.Fatalf("FileName = %q, want %q", res.Image.FileName, wantName)
	}
	key := "dev/emails_v2/b1/" + wantName
	if !store.IsPublic(key) || !res.Public {
		t.Fatal("expected uploaded object to be public")
	}
	if store.ContentType(key) != "image/png" {
		t.Fatalf("content type = %q", store.ContentType(key))
	}
	if res.Image.HeroURL != "https://storage.googleapis.com/bkt/"+key+"?v=b1" {
		t.Fatalf("unexpected hero url %q", res.Image.HeroURL)
	}
	if !res.DocumentUpdated {
		t.Fatal("expected document to be updated")
	}
	doc, err := svc.Resolve(context.Background(), "b1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(doc.Images) != 2 || doc.Images[1].Meta.Source != "manual-upload" || doc.Images[1].Meta.SizeBytes != 9 {
		t.Fatalf("unexpected images after attach %+v", doc.Images)
	}
}

func TestAttachImageMakePublicFailureFallsBackToSignedURL(t *testing.T) {
	store := memstore.New()
	store.FailOn("make_public", "", errors.New("uniform bucket-level access"))
	svc := newService(store, urls.Mode{PublicRead: false}, true)

	res, err := svc.AttachImage(context.Background(), "b9", batch.Upload{Name: "x.jpg", ContentType: "image/jpeg", Data: []byte("j")})
	if err != nil {
		t.Fatalf("AttachImage: %v", err)
	}
	if res.Public {
		t.Fatal("make public failed; result must not claim public")
	}
	if !strings.HasPrefix(res.Image.HeroURL, memstore.SignedBase) {
		t.Fatalf("expected signed hero url, got %q", res.Image.HeroURL)
	}
	if res.DocumentUpdated {
		t.Fatal("no document exists; nothing to update")
	}
}

func TestAttachImageValidation(t *testing.T) {
	svc := newService(memstore.New(), publicDirect, false)
	if _, err := svc.AttachImage(context.Background(), "b1", batch.Upload{Name: "x.png"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty upload, got %v", err)
	}
	big := make([]byte, batch.MaxUploadBytes+1)
	if _, err := svc.AttachImage(context.Background(), "b1", batch.Upload{Name: "x.png", Data: big}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for oversized upload, got %v", err)
	}
}

func TestUploadNameDefaults(t *testing.T) {
	now := time.UnixMilli(42)
	tests := map[string]string{
		"":             "manual_42_manual.jpg",
		"!!!.webp":     "manual_42_manual.webp",
		`C:\x\Foto 1`:  "manual_42_foto-1.jpg",
		"hero_v2-A.JPG": "manual_42_hero_v2-a.jpg",
	}
	for in, want := range tests {
		if got := batch.UploadName(in, now); got != want {
			t.Fatalf("UploadName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestListFiles(t *testing.T) {
	store := memstore.New()
	store.Put("dev/emails_v2/b1/batch.json", []byte(`{}`))
	store.Put("dev/emails_v2/b1/hero.png", []byte("png"))
	store.Put("dev/emails_v2/b1/notes.txt", []byte("txt"))
	svc := newService(store, publicDirect, false)

	listing, err := svc.ListFiles(context.Background(), "b1")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if listing.Prefix != "dev/emails_v2/b1/" || len(listing.Files) != 3 || len(listing.Images) != 1 || len(listing.JSONs) != 1 {
		t.Fatalf("unexpected listing %+v", listing)
	}
	if listing.Images[0].URL != "https://storage.googleapis.com/bkt/dev/emails_v2/b1/hero.png" {
		t.Fatalf("unexpected image url %q", listing.Images[0].URL)
	}
}
