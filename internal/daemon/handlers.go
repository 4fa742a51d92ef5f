package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"contentstudio/internal/api"
	"contentstudio/internal/batch"
	"contentstudio/internal/export"
	"contentstudio/internal/services"
)

const readyTimeout = 5 * time.Second

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

// handleReady lists the batch root so a broken bucket or credential shows up
// before traffic is routed to the daemon.
func (s *apiServer) handleReady(w http.ResponseWriter, r *http.Request) {
	cfg := s.daemon.cfg
	resp := api.HealthResponse{
		Status:  "ready",
		Backend: cfg.Storage.Backend,
		Bucket:  cfg.Storage.Bucket,
		Prefix:  cfg.Storage.Prefix,
	}
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	deps := s.daemon.deps
	if _, err := deps.Store.ListPrefixes(ctx, deps.Batches.Keys().BatchRoot()); err != nil {
		resp.Status = "unavailable"
		resp.Detail = err.Error()
		s.writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	kind := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type")))
	if kind != "" && kind != "emails_v2" {
		s.writeJSON(w, http.StatusOK, []api.HistoryRow{})
		return
	}
	rows, err := s.daemon.deps.History.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromHistoryRows(rows))
}

func (s *apiServer) handleBatchIDRequired(w http.ResponseWriter, _ *http.Request) {
	s.writeError(w, http.StatusBadRequest, "batchId required")
}

func (s *apiServer) handleBatchDocument(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("batchId")
	ctx := services.WithBatchID(r.Context(), batchID)
	doc, err := s.daemon.deps.Batches.Resolve(ctx, batchID)
	if err != nil {
		s.writeBatchError(w, r, batchID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *apiServer) handleBatchFiles(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("batchId")
	listing, err := s.daemon.deps.Batches.ListFiles(services.WithBatchID(r.Context(), batchID), batchID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, listing)
}

func (s *apiServer) handleBatchObject(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("batchId")
	target, err := s.daemon.deps.Batches.ObjectURL(services.WithBatchID(r.Context(), batchID), batchID, r.PathValue("file"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *apiServer) handleSaveSets(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("batchId")
	var req api.SaveSetsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	updated, err := s.daemon.deps.Batches.SaveContentSets(services.WithBatchID(r.Context(), batchID), batchID, req.Sets)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SaveSetsResponse{OK: true, BatchID: batchID, UpdatedAt: api.FormatTime(updated)})
}

func (s *apiServer) handleManualUpload(w http.ResponseWriter, r *http.Request) {
	batchID := strings.TrimSpace(r.PathValue("batchId"))
	r.Body = http.MaxBytesReader(w, r.Body, batch.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(batch.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("image exceeds %d bytes", batch.MaxUploadBytes))
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid multipart body: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "image file required (field 'file')")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, batch.MaxUploadBytes+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}
	result, err := s.daemon.deps.Batches.AttachImage(services.WithBatchID(r.Context(), batchID), batchID, batch.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.UploadResponse{
		OK:              true,
		BatchID:         result.BatchID,
		Image:           result.Image,
		DocumentUpdated: result.DocumentUpdated,
		Public:          result.Public,
	})
}

func (s *apiServer) handleMeta(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.deps.Catalog.Get(r.Context(), refreshRequested(r)))
}

func refreshRequested(r *http.Request) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("refresh"))) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func (s *apiServer) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	batchID, items, ok := s.exportItems(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, items); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", batchID+".csv"))
	_, _ = w.Write(buf.Bytes())
}

func (s *apiServer) handleExportHTML(w http.ResponseWriter, r *http.Request) {
	_, items, ok := s.exportItems(w, r)
	if !ok {
		return
	}
	version, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("version")))
	if err != nil || version <= 0 {
		version = 1
	}
	item, _ := export.Pick(items, version)
	var buf bytes.Buffer
	if err := export.WriteHTML(&buf, item); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// exportItems resolves the batch named by the batchId query parameter. It
// writes the error response itself and reports false when there is nothing
// to export.
func (s *apiServer) exportItems(w http.ResponseWriter, r *http.Request) (string, []export.Item, bool) {
	batchID := strings.TrimSpace(r.URL.Query().Get("batchId"))
	if batchID == "" {
		s.writeError(w, http.StatusBadRequest, "batchId required")
		return "", nil, false
	}
	doc, err := s.daemon.deps.Batches.Resolve(services.WithBatchID(r.Context(), batchID), batchID)
	if err != nil {
		s.writeBatchError(w, r, batchID, err)
		return "", nil, false
	}
	items := export.Items(doc)
	if len(items) == 0 {
		s.writeError(w, http.StatusNotFound, "batch "+batchID+" has no content sets")
		return "", nil, false
	}
	return batchID, items, true
}

// writeBatchError reports unreadable and missing batches alike as not found.
func (s *apiServer) writeBatchError(w http.ResponseWriter, r *http.Request, batchID string, err error) {
	if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrMalformedDocument) {
		s.writeError(w, http.StatusNotFound, "batch "+batchID+" not found")
		return
	}
	s.writeServiceError(w, r, err)
}
