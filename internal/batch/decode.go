package batch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DecodeDocument parses raw batch JSON, accepting every historical shape:
// content sets under "sets" or the legacy "trios", and bodies as an object or
// a bare string.
func DecodeDocument(data []byte) (*Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode batch document: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("decode batch document: not an object")
	}
	doc := &Document{extras: fields}
	doc.BatchID = textField(fields["batchId"])
	doc.CreatedAt = timestampField(fields["createdAt"])
	doc.UpdatedAt = timestampField(fields["updatedAt"])
	doc.Campaign = textField(fields["campaign"])
	doc.Cluster = textField(fields["cluster"])

	doc.Sets = decodeSets(fields)
	doc.Images = decodeImages(fields["images"])

	for _, known := range []string{"batchId", "createdAt", "updatedAt", "campaign", "cluster", "sets", "trios", "images", "_viewerUrl"} {
		delete(doc.extras, known)
	}
	return doc, nil
}

// decodeSets prefers "sets" and falls back to "trios" when it holds no usable
// entry. Entries that are not objects are skipped; positional ids still count
// them so the remaining sets keep their numbers.
func decodeSets(fields map[string]json.RawMessage) []ContentSet {
	for _, name := range []string{"sets", "trios"} {
		items, ok := rawArray(fields[name])
		if !ok {
			continue
		}
		sets := make([]ContentSet, 0, len(items))
		for i, item := range items {
			set, ok := decodeSet(item)
			if !ok {
				continue
			}
			if set.ID == "" {
				set.ID = strconv.Itoa(i + 1)
			}
			sets = append(sets, set)
		}
		if len(sets) > 0 {
			return sets
		}
	}
	return nil
}

func decodeSet(raw json.RawMessage) (ContentSet, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return ContentSet{}, false
	}
	return ContentSet{
		ID:        textField(fields["id"]),
		Subject:   textField(fields["subject"]),
		Preheader: textField(fields["preheader"]),
		Body:      decodeBody(fields["body"]),
		CTA:       textField(fields["cta"]),
	}, true
}

// decodeBody accepts {"title","subtitle","content"} or a legacy string, which
// becomes the content with an empty title.
func decodeBody(raw json.RawMessage) Body {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Body{}
	}
	if trimmed[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return Body{}
		}
		return Body{
			Title:    textField(fields["title"]),
			Subtitle: textField(fields["subtitle"]),
			Content:  textField(fields["content"]),
		}
	}
	return Body{Content: textField(trimmed)}
}

// decodeImages skips entries that are not objects.
func decodeImages(raw json.RawMessage) []ImageAsset {
	items, ok := rawArray(raw)
	if !ok {
		return nil
	}
	images := make([]ImageAsset, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			continue
		}
		img := ImageAsset{
			FileName:   textField(fields["fileName"]),
			HeroURL:    textField(fields["heroUrl"]),
			ConsoleURL: textField(fields["consoleUrl"]),
		}
		if img.FileName == "" {
			img.FileName = textField(fields["url"])
		}
		img.FileName = strings.TrimLeft(img.FileName, "/")
		if img.FileName == "" {
			img.FileName = fileNameFromHeroURL(img.HeroURL)
		}
		if meta, ok := fields["meta"]; ok {
			img.Meta = decodeImageMeta(meta)
		}
		images = append(images, img)
	}
	return images
}

var heroFilePattern = regexp.MustCompile(`/emails_v2/[^/]+/([^?]+)`)

// fileNameFromHeroURL recovers the object name from a stored hero link such
// as "/emails_v2/<id>/hero.png?v=1".
func fileNameFromHeroURL(hero string) string {
	m := heroFilePattern.FindStringSubmatch(hero)
	if m == nil {
		return ""
	}
	if name, err := url.PathUnescape(m[1]); err == nil {
		return name
	}
	return m[1]
}

func decodeImageMeta(raw json.RawMessage) ImageMeta {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ImageMeta{}
	}
	meta := ImageMeta{
		Source:         textField(fields["source"]),
		ContentType:    textField(fields["contentType"]),
		UploadedAt:     textField(fields["uploadedAt"]),
		SizeDeclared:   nonNull(fields["sizeDeclared"]),
		SizeNormalized: nonNull(fields["sizeNormalized"]),
	}
	if len(meta.SizeDeclared) == 0 {
		meta.SizeDeclared = nonNull(fields["size"])
	}
	var size float64
	if err := json.Unmarshal(fields["sizeBytes"], &size); err == nil && size > 0 {
		meta.SizeBytes = int64(size)
	}
	return meta
}

func rawArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, false
	}
	return items, true
}

// textField renders a scalar JSON value as text. Objects, arrays and null
// yield the empty string.
func textField(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	case 't', 'f':
		return string(trimmed)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err == nil {
			return n.String()
		}
	}
	return ""
}

// timestampField accepts a timestamp string or epoch milliseconds.
func timestampField(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] != '"' {
		var ms float64
		if err := json.Unmarshal(trimmed, &ms); err == nil && ms > 0 && !math.IsInf(ms, 0) {
			return time.UnixMilli(int64(ms)).UTC().Format(time.RFC3339Nano)
		}
		return ""
	}
	return textField(trimmed)
}

func nonNull(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return append(json.RawMessage(nil), trimmed...)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseTimestamp parses the timestamp formats found in batch documents.
// Values without a zone are read as UTC.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type manifestDocument struct {
	Images []struct {
		FileName       string          `json:"fileName"`
		SizeDeclared   json.RawMessage `json:"sizeDeclared"`
		SizeNormalized json.RawMessage `json:"sizeNormalized"`
	} `json:"images"`
}

// decodeManifest maps _manifest.json images to image assets without URLs.
func decodeManifest(data []byte) ([]ImageAsset, error) {
	var manifest manifestDocument
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	images := make([]ImageAsset, 0, len(manifest.Images))
	for _, m := range manifest.Images {
		name := strings.TrimLeft(m.FileName, "/")
		if name == "" {
			continue
		}
		images = append(images, ImageAsset{
			FileName: name,
			Meta: ImageMeta{
				SizeDeclared:   nonNull(m.SizeDeclared),
				SizeNormalized: nonNull(m.SizeNormalized),
			},
		})
	}
	return images, nil
}

// Summary is the part of a batch document the history view needs.
type Summary struct {
	Count     int
	CreatedAt time.Time
}

// Summarize counts a document's content without decoding every entry. The
// count is the first non-zero of len(sets), len(trios) and len(images).
func Summarize(data []byte) (Summary, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Summary{}, fmt.Errorf("decode batch document: %w", err)
	}
	if fields == nil {
		return Summary{}, fmt.Errorf("decode batch document: not an object")
	}
	var summary Summary
	for _, name := range []string{"sets", "trios", "images"} {
		if items, ok := rawArray(fields[name]); ok && len(items) > 0 {
			summary.Count = len(items)
			break
		}
	}
	if created, ok := ParseTimestamp(timestampField(fields["createdAt"])); ok {
		summary.CreatedAt = created
	}
	return summary, nil
}
