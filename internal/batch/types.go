package batch

import (
	"encoding/json"
	"time"
)

// Body is the structured body of a content set.
type Body struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Content  string `json:"content"`
}

// ContentSet is one text variant of a batch.
type ContentSet struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Preheader string `json:"preheader"`
	Body      Body   `json:"body"`
	CTA       string `json:"cta,omitempty"`
}

// ImageMeta describes where an image came from.
type ImageMeta struct {
	Source         string          `json:"source,omitempty"`
	ContentType    string          `json:"contentType,omitempty"`
	SizeBytes      int64           `json:"sizeBytes,omitempty"`
	UploadedAt     string          `json:"uploadedAt,omitempty"`
	SizeDeclared   json.RawMessage `json:"sizeDeclared,omitempty"`
	SizeNormalized json.RawMessage `json:"sizeNormalized,omitempty"`
}

// ImageAsset is an image stored beside the batch document.
type ImageAsset struct {
	FileName   string    `json:"fileName"`
	HeroURL    string    `json:"heroUrl,omitempty"`
	ConsoleURL string    `json:"consoleUrl,omitempty"`
	Meta       ImageMeta `json:"meta"`
}

// Document is a normalized batch document.
type Document struct {
	BatchID   string
	CreatedAt string
	UpdatedAt string
	Campaign  string
	Cluster   string
	Sets      []ContentSet
	Images    []ImageAsset
	// ViewerURL is a public-style link to the stored JSON.
	ViewerURL string
	// Key is the storage key the document was read from.
	Key string

	extras map[string]json.RawMessage
}

// Created parses CreatedAt.
func (d *Document) Created() (time.Time, bool) {
	return ParseTimestamp(d.CreatedAt)
}

// MarshalJSON writes the normalized document. Fields the studio does not model
// are carried through unchanged; the legacy "trios" list is replaced by "sets".
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.extras)+8)
	for k, v := range d.extras {
		out[k] = v
	}
	delete(out, "trios")
	out["batchId"] = d.BatchID
	out["campaign"] = d.Campaign
	out["cluster"] = d.Cluster
	sets := d.Sets
	if sets == nil {
		sets = []ContentSet{}
	}
	out["sets"] = sets
	images := d.Images
	if images == nil {
		images = []ImageAsset{}
	}
	out["images"] = images
	if d.CreatedAt != "" {
		out["createdAt"] = d.CreatedAt
	}
	if d.UpdatedAt != "" {
		out["updatedAt"] = d.UpdatedAt
	}
	if d.ViewerURL != "" {
		out["_viewerUrl"] = d.ViewerURL
	}
	return json.Marshal(out)
}

// FileInfo is one object of a batch folder listing.
type FileInfo struct {
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	Updated     time.Time `json:"updated"`
	ContentType string    `json:"contentType,omitempty"`
	URL         string    `json:"url,omitempty"`
	ConsoleURL  string    `json:"consoleUrl"`
}

// Listing is the content of a batch folder split by kind.
type Listing struct {
	Prefix string     `json:"prefix"`
	Files  []FileInfo `json:"files"`
	Images []FileInfo `json:"images"`
	JSONs  []FileInfo `json:"jsons"`
}

// Upload is a manually uploaded image.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// AttachResult reports the outcome of AttachImage.
type AttachResult struct {
	BatchID string     `json:"batchId"`
	Image   ImageAsset `json:"image"`
	// DocumentUpdated is false when the batch has no canonical document with
	// an images list to append to.
	DocumentUpdated bool `json:"documentUpdated"`
	// Public reports whether the object was made publicly readable.
	Public bool `json:"public"`
}
