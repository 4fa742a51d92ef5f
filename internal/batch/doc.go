// Package batch locates, normalizes and edits batch documents.
//
// A batch lives in its own folder under emails_v2/ and consists of a JSON
// document plus sibling image objects. Older generations wrote the document
// under other names and with other shapes (a "trios" list, string bodies), so
// Service.Resolve finds the document through an ordered candidate table,
// normalizes every legacy shape at the read boundary, hydrates images from
// _manifest.json when the document has none, and completes image URLs for the
// configured access mode.
package batch
