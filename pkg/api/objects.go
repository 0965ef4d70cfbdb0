package api

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/marmos91/dittorepo/internal/logger"
	"github.com/marmos91/dittorepo/pkg/objectstore"
)

const MsgObjectNotFound = "Object not found."

// getObject handles GET /objects/{key...}, the target of URLs produced by
// the local backends.
func (h *handler) getObject(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	data, err := h.deps.Store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) || errors.Is(err, objectstore.ErrInvalidKey) {
			writeEnvelope(w, http.StatusNotFound, failure(MsgObjectNotFound))
			return
		}
		logger.Error("Failed to read object %s: %v", key, err)
		writeEnvelope(w, http.StatusInternalServerError, failure("Error reading object."))
		return
	}

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// health handles GET /health.
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusOK, map[string]string{"status": "healthy"})
}
