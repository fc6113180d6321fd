package api

import (
	"log/slog"
	"net/http"
	"os"

	"mergeflow/pkg/storage"
)

// ImageHandler serves previously produced final images by filename.
type ImageHandler struct {
	store *storage.Store
}

// NewImageHandler creates a new ImageHandler backed by the given store.
func NewImageHandler(store *storage.Store) *ImageHandler {
	return &ImageHandler{store: store}
}

// HandleGetFinalImage serves GET /final_image/{filename}.
func (h *ImageHandler) HandleGetFinalImage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")

	path, err := h.store.FinalPath(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found.")
		return
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		writeError(w, http.StatusNotFound, "File not found.")
		return
	}
	if err != nil || info.IsDir() {
		slog.Error("Failed to stat final image", "path", path, "error", err)
		writeError(w, http.StatusNotFound, "File not found.")
		return
	}

	http.ServeFile(w, r, path)
}
