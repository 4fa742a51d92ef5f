package objectkey

import (
	"path"
	"strings"
)

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".avif": "image/avif",
	".json": "application/json",
	".html": "text/html; charset=utf-8",
	".txt":  "text/plain; charset=utf-8",
	".csv":  "text/csv; charset=utf-8",
	".pdf":  "application/pdf",
	".mp4":  "video/mp4",
}

// ContentTypeByExt maps a key's extension to a MIME type, defaulting to
// application/octet-stream.
func ContentTypeByExt(key string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(key))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// IsImage reports whether key names a raster or vector image the studio renders.
func IsImage(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".png", ".jpg", ".jpeg", ".webp", ".gif", ".avif":
		return true
	}
	return false
}

// IsJSON reports whether key names a JSON object.
func IsJSON(key string) bool {
	return strings.EqualFold(path.Ext(key), ".json")
}
