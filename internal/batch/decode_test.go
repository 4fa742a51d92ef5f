package batch_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"contentstudio/internal/batch"
)

func TestDecodeDocumentLegacyTriosAndStringBody(t *testing.T) {
	doc, err := batch.DecodeDocument([]byte(`{
		"trios": [{"subject": "S1", "preheader": "P1", "body": "plain text"}],
		"images": [{"url": "/hero.png"}, "junk"],
		"createdAt": 1735689600000
	}`))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if len(doc.Sets) != 1 {
		t.Fatalf("expected one set, got %d", len(doc.Sets))
	}
	set := doc.Sets[0]
	if set.ID != "1" || set.Body.Content != "plain text" || set.Body.Title != "" {
		t.Fatalf("unexpected set %+v", set)
	}
	if len(doc.Images) != 1 || doc.Images[0].FileName != "hero.png" {
		t.Fatalf("unexpected images %+v", doc.Images)
	}
	if doc.CreatedAt != "2025-01-01T00:00:00Z" {
		t.Fatalf("epoch createdAt = %q", doc.CreatedAt)
	}
}

func TestDecodeDocumentStructuredSets(t *testing.T) {
	doc, err := batch.DecodeDocument([]byte(`{
		"sets": [{"id": 7, "subject": "S", "body": {"title": "T", "subtitle": "ST", "content": "C"}, "cta": "Go"}],
		"trios": [{"subject": "ignored"}]
	}`))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	set := doc.Sets[0]
	if len(doc.Sets) != 1 || set.ID != "7" || set.Body != (batch.Body{Title: "T", Subtitle: "ST", Content: "C"}) || set.CTA != "Go" {
		t.Fatalf("unexpected sets %+v", doc.Sets)
	}
}

func TestDecodeDocumentEmptySetsFallsBackToTrios(t *testing.T) {
	doc, err := batch.DecodeDocument([]byte(`{"sets": [], "trios": [{"subject": "legacy"}]}`))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if len(doc.Sets) != 1 || doc.Sets[0].Subject != "legacy" {
		t.Fatalf("expected trios fallback, got %+v", doc.Sets)
	}
}

func TestDecodeDocumentLegacyAndStructuredShapesAgree(t *testing.T) {
	legacy, err := batch.DecodeDocument([]byte(`{
		"trios": [{"subject": "Hola", "preheader": "Pre", "body": "Texto", "cta": "Ver"}]
	}`))
	if err != nil {
		t.Fatalf("DecodeDocument legacy: %v", err)
	}
	structured, err := batch.DecodeDocument([]byte(`{
		"sets": [{"subject": "Hola", "preheader": "Pre", "body": {"title": "", "content": "Texto"}, "cta": "Ver"}]
	}`))
	if err != nil {
		t.Fatalf("DecodeDocument structured: %v", err)
	}
	if len(legacy.Sets) != 1 || len(structured.Sets) != 1 {
		t.Fatalf("expected one set each, got %d and %d", len(legacy.Sets), len(structured.Sets))
	}
	if legacy.Sets[0] != structured.Sets[0] {
		t.Fatalf("shapes disagree: %+v vs %+v", legacy.Sets[0], structured.Sets[0])
	}
}

func TestDecodeDocumentSkipsNonObjectSets(t *testing.T) {
	doc, err := batch.DecodeDocument([]byte(`{
		"sets": [{"subject": "uno"}, 5, null, {"subject": "cuatro"}]
	}`))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if len(doc.Sets) != 2 {
		t.Fatalf("expected two usable sets, got %+v", doc.Sets)
	}
	if doc.Sets[0].ID != "1" || doc.Sets[1].ID != "4" || doc.Sets[1].Subject != "cuatro" {
		t.Fatalf("unexpected sets %+v", doc.Sets)
	}

	doc, err = batch.DecodeDocument([]byte(`{"sets": ["junk"], "trios": [{"subject": "legacy"}]}`))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if len(doc.Sets) != 1 || doc.Sets[0].Subject != "legacy" {
		t.Fatalf("expected trios fallback, got %+v", doc.Sets)
	}
}

func TestDecodeDocumentRecoversFileNameFromHeroURL(t *testing.T) {
	doc, err := batch.DecodeDocument([]byte(`{
		"images": [
			{"heroUrl": "/emails_v2/b1/hero%20uno.png?v=b1"},
			{"heroUrl": "https://storage.googleapis.com/bkt/dev/emails_v2/b1/sub/hero.png"},
			{"heroUrl": "/otra/ruta.png"}
		]
	}`))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if len(doc.Images) != 3 {
		t.Fatalf("expected three images, got %+v", doc.Images)
	}
	want := []string{"hero uno.png", "sub/hero.png", ""}
	for i, w := range want {
		if doc.Images[i].FileName != w {
			t.Fatalf("image %d fileName = %q, want %q", i, doc.Images[i].FileName, w)
		}
	}
}

func TestDecodeDocumentRejectsNonObject(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `null`, `{"sets": [`} {
		if _, err := batch.DecodeDocument([]byte(raw)); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}
}

func TestDocumentMarshalKeepsUnknownFields(t *testing.T) {
	doc, err := batch.DecodeDocument([]byte(`{
		"batchId": "b1",
		"trios": [{"subject": "S", "body": "B"}],
		"generator": {"model": "x"}
	}`))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	doc.ViewerURL = "https://viewer/b1"
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"generator":{"model":"x"}`, `"sets":[`, `"_viewerUrl":"https://viewer/b1"`, `"images":[]`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
	if strings.Contains(out, "trios") {
		t.Fatalf("legacy trios should be replaced, got %s", out)
	}
}

func TestParseTimestamp(t *testing.T) {
	for _, value := range []string{"2025-01-02T03:04:05Z", "2025-01-02T03:04:05.123+02:00", "2025-01-02 03:04:05", "2025-01-02"} {
		if _, ok := batch.ParseTimestamp(value); !ok {
			t.Fatalf("expected %q to parse", value)
		}
	}
	if _, ok := batch.ParseTimestamp("yesterday"); ok {
		t.Fatal("expected garbage to be rejected")
	}
}

func TestSummarizeCountPriority(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want int
	}{
		{"sets win over images", `{"sets":[{},{}],"images":[{},{},{}]}`, 2},
		{"trios when sets empty", `{"sets":[],"trios":[{}],"images":[{},{}]}`, 1},
		{"images as last resort", `{"images":[{},{},{}]}`, 3},
		{"nothing", `{"sets":"oops"}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := batch.Summarize([]byte(tt.doc))
			if err != nil {
				t.Fatalf("Summarize: %v", err)
			}
			if got.Count != tt.want {
				t.Fatalf("Count = %d, want %d", got.Count, tt.want)
			}
		})
	}
}

func TestSummarizeCreatedAt(t *testing.T) {
	got, err := batch.Summarize([]byte(`{"createdAt":"2025-03-04T05:06:07Z"}`))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !got.CreatedAt.Equal(time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)) {
		t.Fatalf("CreatedAt = %v", got.CreatedAt)
	}
	got, _ = batch.Summarize([]byte(`{"createdAt":"not a date"}`))
	if !got.CreatedAt.IsZero() {
		t.Fatalf("unparseable createdAt should be zero, got %v", got.CreatedAt)
	}
	if _, err := batch.Summarize([]byte(`[1]`)); err == nil {
		t.Fatal("expected error for non-object document")
	}
}
