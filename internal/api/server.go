package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"mergeflow/pkg/version"
)

// NewServer creates and configures the HTTP server.
func NewServer(addr string, merge *MergeHandler, images *ImageHandler) *http.Server {
	mux := http.NewServeMux()

	// 1. Health / Version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /version", handleVersion)

	// 2. Pipeline endpoint
	mux.HandleFunc("POST /merge_images", merge.HandleMerge)

	// 3. Final image retrieval
	mux.HandleFunc("GET /final_image/{filename}", images.HandleGetFinalImage)

	return &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 30 * time.Second,
		// No write timeout: /merge_images blocks through generation, which
		// can legitimately take minutes. The watcher enforces its own
		// deadline instead.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
