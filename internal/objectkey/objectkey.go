// Package objectkey builds storage object keys for batch artifacts.
//
// Every key handed to the object store is rooted under an environment prefix
// (for example "dev/"). Resolver.WithPrefix is idempotent so callers may pass
// either relative or already-prefixed keys without double prefixing.
package objectkey

import (
	"path"
	"strings"
)

// BatchRoot is the folder under the prefix that holds one folder per batch.
const BatchRoot = "emails_v2/"

const (
	// DocumentName is the canonical batch document filename.
	DocumentName = "batch.json"
	// ManifestName is the image manifest written beside the batch document.
	ManifestName = "_manifest.json"
)

// Resolver prefixes relative keys with an environment prefix.
type Resolver struct {
	prefix string
}

// NewResolver returns a resolver for the given environment prefix. Surrounding
// slashes are ignored; an empty prefix disables prefixing.
func NewResolver(prefix string) Resolver {
	return Resolver{prefix: strings.Trim(strings.TrimSpace(prefix), "/")}
}

// Prefix returns the normalized environment prefix without slashes.
func (r Resolver) Prefix() string {
	return r.prefix
}

// Normalize converts backslashes to forward slashes and strips leading slashes.
func Normalize(key string) string {
	key = strings.ReplaceAll(key, "\\", "/")
	return strings.TrimLeft(key, "/")
}

// WithPrefix returns the storage key for relative, applying the environment
// prefix unless it is already present.
func (r Resolver) WithPrefix(relative string) string {
	normalized := Normalize(relative)
	if r.prefix == "" {
		return normalized
	}
	head := r.prefix + "/"
	if strings.HasPrefix(normalized, head) {
		return normalized
	}
	return head + normalized
}

// Relative strips the environment prefix from key when present.
func (r Resolver) Relative(key string) string {
	normalized := Normalize(key)
	if r.prefix == "" {
		return normalized
	}
	return strings.TrimPrefix(normalized, r.prefix+"/")
}

// BatchRoot returns the prefixed folder holding every batch, with trailing slash.
func (r Resolver) BatchRoot() string {
	return r.WithPrefix(BatchRoot)
}

// BatchFolder returns the prefixed folder of a batch, with trailing slash.
func (r Resolver) BatchFolder(batchID string) string {
	return r.WithPrefix(BatchRoot + batchID + "/")
}

// BatchDocument returns the canonical batch.json key of a batch.
func (r Resolver) BatchDocument(batchID string) string {
	return r.BatchObject(batchID, DocumentName)
}

// Manifest returns the _manifest.json key of a batch.
func (r Resolver) Manifest(batchID string) string {
	return r.BatchObject(batchID, ManifestName)
}

// BatchObject returns the key of file inside the batch folder. Leading
// slashes on file are dropped.
func (r Resolver) BatchObject(batchID, file string) string {
	return r.BatchFolder(batchID) + Normalize(file)
}

// BatchIDFromPrefix returns the batch id of a listed folder prefix such as
// "dev/emails_v2/<id>/".
func BatchIDFromPrefix(prefix string) string {
	trimmed := strings.TrimRight(Normalize(prefix), "/")
	if trimmed == "" {
		return ""
	}
	return path.Base(trimmed)
}

// BaseName returns the final path segment of key.
func BaseName(key string) string {
	key = strings.TrimRight(Normalize(key), "/")
	if key == "" {
		return ""
	}
	return path.Base(key)
}
