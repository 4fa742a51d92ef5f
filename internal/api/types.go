package api

import "contentstudio/internal/batch"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// HistoryRow is one batch in the history listing.
type HistoryRow struct {
	BatchID   string `json:"batchId"`
	Count     int    `json:"count"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// SaveSetsRequest replaces the content sets of a batch.
type SaveSetsRequest struct {
	Sets []batch.ContentSet `json:"sets"`
}

// SaveSetsResponse acknowledges an edit.
type SaveSetsResponse struct {
	OK        bool   `json:"ok"`
	BatchID   string `json:"batchId"`
	UpdatedAt string `json:"updatedAt"`
}

// UploadResponse describes a manually uploaded image.
type UploadResponse struct {
	OK              bool             `json:"ok"`
	BatchID         string           `json:"batchId"`
	Image           batch.ImageAsset `json:"image"`
	DocumentUpdated bool             `json:"documentUpdated"`
	Public          bool             `json:"public"`
}

// ErrorResponse is the body of every JSON error reply.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// HealthResponse reports liveness and, for readiness, storage reachability.
type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
	Bucket  string `json:"bucket,omitempty"`
	Prefix  string `json:"prefix,omitempty"`
	Detail  string `json:"detail,omitempty"`
}
