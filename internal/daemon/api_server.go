package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"contentstudio/internal/api"
	"contentstudio/internal/config"
	"contentstudio/internal/logging"
	"contentstudio/internal/services"
)

// maxJSONBody bounds edit payloads.
const maxJSONBody = 10 << 20

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	protect := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(cfg.Paths.APIToken, h)
	}

	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.HandleFunc("GET /ready", srv.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(d.deps.Gatherer, promhttp.HandlerOpts{}))
	if d.deps.Objects != nil {
		mux.HandleFunc("GET /objects/{key...}", srv.handleObject)
	}

	mux.Handle("GET /api/history", protect(srv.handleHistory))

	for _, root := range []string{"/api/generated/emails_v2", "/generated/emails_v2"} {
		mux.Handle("GET "+root, protect(srv.handleBatchIDRequired))
		mux.Handle("GET "+root+"/{$}", protect(srv.handleBatchIDRequired))
		mux.Handle("GET "+root+"/{batchId}/batch.json", protect(srv.handleBatchDocument))
		mux.Handle("GET "+root+"/{batchId}/files", protect(srv.handleBatchFiles))
		mux.Handle("GET "+root+"/{batchId}/{file...}", protect(srv.handleBatchObject))
	}

	mux.Handle("PUT /api/emails-v2/{batchId}", protect(srv.handleSaveSets))
	mux.Handle("POST /api/email-v2/batch/{batchId}/images/manual-upload", protect(srv.handleManualUpload))

	for _, path := range []string{
		"/api/email-v2", "/api/email-v2/meta", "/api/email-v2/meta2",
		"/api/emails-v2", "/api/emails-v2/{$}", "/api/emails-v2/meta", "/api/emails-v2/meta2",
	} {
		mux.Handle("GET "+path, protect(srv.handleMeta))
	}

	mux.Handle("GET /api/export/csv", protect(srv.handleExportCSV))
	mux.Handle("GET /api/export/html", protect(srv.handleExportHTML))

	srv.handler = requestIDMiddleware(srv.logger, mux)
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("paths.api_bind is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		s.server = nil
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{OK: false, Error: message})
}

// writeServiceError maps a service error to its HTTP status. Server-side
// failures are logged with the request's correlation fields.
func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "request failed", "request_failed",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check storage credentials and bucket configuration"),
		)
	}
	s.writeError(w, status, err.Error())
}
