package export_test

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"contentstudio/internal/batch"
	"contentstudio/internal/export"
)

func sampleDocument() *batch.Document {
	return &batch.Document{
		Campaign: "Verano",
		Cluster:  "Familias",
		Sets: []batch.ContentSet{
			{ID: "1", Subject: "Hola", Preheader: "Pre", Body: batch.Body{Title: "T", Content: "line one\nline two"}, CTA: "Comprar"},
			{ID: "b", Subject: "Segundo, con coma", Body: batch.Body{Content: "<b>bold</b>"}},
		},
		Images: []batch.ImageAsset{{FileName: "hero.png", HeroURL: "https://cdn.test/hero.png"}},
	}
}

func TestItemsVersionsAndHeroes(t *testing.T) {
	items := export.Items(sampleDocument())
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Version != 1 || items[0].HeroURL != "https://cdn.test/hero.png" {
		t.Fatalf("unexpected first item %+v", items[0])
	}
	if items[1].Version != 2 || items[1].HeroURL != "" {
		t.Fatalf("non-numeric id should fall back to position, got %+v", items[1])
	}
	if export.Items(nil) != nil {
		t.Fatal("nil document yields no items")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, export.Items(sampleDocument())); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\uFEFFcampaign,cluster,version,subject,preheader,body_title,body_content,cta,heroUrl\n") {
		t.Fatalf("missing BOM or header: %q", out[:40])
	}
	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\uFEFF"))).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(records))
	}
	if records[1][6] != "line one line two" {
		t.Fatalf("newlines should be flattened, got %q", records[1][6])
	}
	if records[2][3] != "Segundo, con coma" {
		t.Fatalf("comma field mangled: %q", records[2][3])
	}
}

func TestWriteHTMLEscapesContent(t *testing.T) {
	item, ok := export.Pick(export.Items(sampleDocument()), 2)
	if !ok || item.Version != 2 {
		t.Fatalf("Pick(2) = %+v, %v", item, ok)
	}
	var buf bytes.Buffer
	if err := export.WriteHTML(&buf, item); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "&lt;b&gt;bold&lt;/b&gt;") {
		t.Fatalf("body not escaped: %s", out)
	}
	if strings.Contains(out, `class="hero"`) || strings.Contains(out, "cta-btn\">") {
		t.Fatalf("empty hero and cta should be omitted: %s", out)
	}
}

func TestPickFallsBackToFirst(t *testing.T) {
	items := export.Items(sampleDocument())
	item, ok := export.Pick(items, 99)
	if !ok || item.Version != 1 {
		t.Fatalf("expected first item, got %+v", item)
	}
	if _, ok := export.Pick(nil, 1); ok {
		t.Fatal("no items means no pick")
	}
}
