package handlers

import (
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/lungscan/apiserver/internal/storage"
)

// UploadsHandler serves stored images under the public /uploads path.
// There is no access control: any URL holder can fetch any stored
// image.
type UploadsHandler struct {
	storage *storage.Storage
}

// UploadsRouter registers the uploads retrieval route.
func UploadsRouter(r chi.Router, store *storage.Storage) {
	handler := &UploadsHandler{storage: store}

	r.Get("/{objectKey}", handler.Serve)
}

// Serve streams a stored object to the client.
func (h *UploadsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "objectKey")

	object, err := h.storage.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to read image")
		return
	}
	defer object.Close()

	if contentType := mime.TypeByExtension(filepath.Ext(key)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if _, err := io.Copy(w, object); err != nil {
		log.Printf("failed to stream object %s: %v", key, err)
	}
}
