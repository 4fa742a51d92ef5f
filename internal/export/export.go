// Package export renders batch content sets for hand-off outside the studio:
// a spreadsheet-friendly CSV of every set and a standalone HTML preview of
// one set.
package export

import (
	"embed"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"contentstudio/internal/batch"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// Header is the first CSV row.
var Header = []string{"campaign", "cluster", "version", "subject", "preheader", "body_title", "body_content", "cta", "heroUrl"}

// utf8BOM makes spreadsheet tools detect UTF-8.
const utf8BOM = "\uFEFF"

// Item is one content set flattened for export.
type Item struct {
	Campaign    string
	Cluster     string
	Version     int
	Subject     string
	Preheader   string
	BodyTitle   string
	BodyContent string
	CTA         string
	HeroURL     string
}

// Items flattens the content sets of doc. The image at the same position as
// a set is its hero image.
func Items(doc *batch.Document) []Item {
	if doc == nil {
		return nil
	}
	items := make([]Item, 0, len(doc.Sets))
	for i, set := range doc.Sets {
		version, err := strconv.Atoi(strings.TrimSpace(set.ID))
		if err != nil || version <= 0 {
			version = i + 1
		}
		item := Item{
			Campaign:    doc.Campaign,
			Cluster:     doc.Cluster,
			Version:     version,
			Subject:     set.Subject,
			Preheader:   set.Preheader,
			BodyTitle:   set.Body.Title,
			BodyContent: set.Body.Content,
			CTA:         set.CTA,
		}
		if i < len(doc.Images) {
			item.HeroURL = doc.Images[i].HeroURL
		}
		items = append(items, item)
	}
	return items
}

// Pick returns the item with the requested version, or the first item.
func Pick(items []Item, version int) (Item, bool) {
	if len(items) == 0 {
		return Item{}, false
	}
	for _, item := range items {
		if item.Version == version {
			return item, true
		}
	}
	return items[0], true
}

// WriteCSV writes a BOM, the header and one row per item. Newlines inside
// fields are flattened to spaces so each set stays on one line.
func WriteCSV(w io.Writer, items []Item) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write CSV BOM: %w", err)
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, item := range items {
		row := []string{
			flatten(item.Campaign),
			flatten(item.Cluster),
			strconv.Itoa(item.Version),
			flatten(item.Subject),
			flatten(item.Preheader),
			flatten(item.BodyTitle),
			flatten(item.BodyContent),
			flatten(item.CTA),
			flatten(item.HeroURL),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}
	return nil
}

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func flatten(s string) string {
	return newlines.Replace(s)
}

// WriteHTML renders a standalone email preview of item.
func WriteHTML(w io.Writer, item Item) error {
	if err := templates.ExecuteTemplate(w, "email.html", item); err != nil {
		return fmt.Errorf("render email preview: %w", err)
	}
	return nil
}
