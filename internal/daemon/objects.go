package daemon

import (
	"errors"
	"net/http"
	"strconv"

	"contentstudio/internal/objectstore"
	"contentstudio/internal/services"
)

// handleObject serves an object of the local bucket when the request carries
// a valid signature or the object is public.
func (s *apiServer) handleObject(w http.ResponseWriter, r *http.Request) {
	objects := s.daemon.deps.Objects
	key := r.PathValue("key")
	query := r.URL.Query()
	if err := objects.Authorize(r.Context(), key, query.Get("expires"), query.Get("sig")); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			s.writeError(w, http.StatusNotFound, "object not found")
		case errors.Is(err, services.ErrValidation):
			s.writeError(w, http.StatusForbidden, err.Error())
		default:
			s.writeServiceError(w, r, err)
		}
		return
	}
	info, err := objects.Stat(r.Context(), key)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	data, err := objects.Read(r.Context(), key)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", objectstore.DefaultCacheControl)
	if !info.Updated.IsZero() {
		w.Header().Set("Last-Modified", info.Updated.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}
