package api

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"mergeflow/pkg/comfy"
	"mergeflow/pkg/compositor"
	"mergeflow/pkg/publish"
	"mergeflow/pkg/removal"
	"mergeflow/pkg/storage"
	"mergeflow/pkg/workflow"
)

// MergeHandler runs the whole pipeline for one request: composite the two
// uploads, submit the result to the generation service, wait for completion,
// publish the produced image, and answer with its public URL. Every stage
// depends on the previous one; the first failure terminates the request with
// a stage-specific response.
type MergeHandler struct {
	remover   removal.Remover
	store     *storage.Store
	client    *comfy.Client
	watcher   *comfy.Watcher
	template  *workflow.Template
	publisher publish.Publisher
	publicURL string
}

// NewMergeHandler wires the pipeline stages together.
func NewMergeHandler(remover removal.Remover, store *storage.Store, client *comfy.Client, watcher *comfy.Watcher, template *workflow.Template, publisher publish.Publisher, publicURL string) *MergeHandler {
	return &MergeHandler{
		remover:   remover,
		store:     store,
		client:    client,
		watcher:   watcher,
		template:  template,
		publisher: publisher,
		publicURL: publicURL,
	}
}

// HandleMerge handles POST /merge_images.
func (h *MergeHandler) HandleMerge(w http.ResponseWriter, r *http.Request) {
	// Fallback for anything a stage did not translate itself.
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Pipeline panicked", "panic", rec, "stack", string(debug.Stack()))
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "An internal server error occurred",
				"details": fmt.Sprint(rec),
			})
		}
	}()

	ctx := r.Context()

	fgImage, bgImage, ok := h.readUploads(w, r)
	if !ok {
		return
	}

	// Stage 1: composite and persist locally under a timestamped name.
	merged, err := compositor.Composite(ctx, fgImage, bgImage, h.remover)
	if err != nil {
		h.internalError(w, "compositing failed", err)
		return
	}
	mergedPNG, err := compositor.EncodePNG(merged)
	if err != nil {
		h.internalError(w, "encoding composite failed", err)
		return
	}

	timestamp := storage.Timestamp(time.Now())
	mergedName := fmt.Sprintf("merged_result_%s.png", timestamp)
	mergedPath, err := h.store.SaveMerged(mergedName, mergedPNG)
	if err != nil {
		h.internalError(w, "persisting composite failed", err)
		return
	}
	slog.Info("Composite saved", "path", mergedPath)

	// Stage 2: submit the composite as an asset.
	assetName, err := h.client.UploadImage(ctx, mergedName, mergedPNG)
	if err != nil {
		slog.Error("Asset upload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to upload merge image to ComfyUI")
		return
	}

	// Stage 3: bind the workflow template and queue the job under a fresh
	// session id.
	graph, err := h.template.Bind(assetName, fmt.Sprintf("checkint_%s", timestamp))
	if err != nil {
		h.internalError(w, "binding workflow template failed", err)
		return
	}

	clientID := uuid.NewString()
	promptID, err := h.client.QueuePrompt(ctx, graph, clientID)
	if err != nil {
		slog.Error("Prompt submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to queue prompt in ComfyUI")
		return
	}

	// Stage 4: block until the job completes and its output is persisted.
	finalName, err := h.watcher.AwaitOutput(ctx, promptID, clientID)
	if err != nil {
		slog.Error("Completion watch failed", "prompt_id", promptID, "error", err)
		writeError(w, http.StatusInternalServerError, "Workflow completed but could not retrieve final image from ComfyUI")
		return
	}

	// Stage 5: publish. The final image stays retrievable locally even when
	// publishing fails, so the response includes its filename.
	finalPath, err := h.store.FinalPath(finalName)
	if err != nil {
		h.internalError(w, "resolving final image failed", err)
		return
	}
	if err := h.publisher.Publish(ctx, finalPath, finalName); err != nil {
		slog.Error("Publish failed", "name", finalName, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"message":              "Workflow completed, but failed to upload image to FTP server.",
			"error":                "Could not upload the final image via FTP.",
			"final_image_filename": finalName,
			"ftp_error_details":    err.Error(),
		})
		return
	}

	if h.publicURL == "" {
		writeError(w, http.StatusInternalServerError, "BASE_PUBLIC_URL is not set")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":         "Workflow complete. File uploaded successfully.",
		"final_image_url": h.publicURL + finalName,
	})
}

// readUploads validates and decodes the two multipart files. On failure it
// writes the 4xx/5xx response itself and returns ok=false.
func (h *MergeHandler) readUploads(w http.ResponseWriter, r *http.Request) (fg, bg image.Image, ok bool) {
	fgFile, fgHeader, fgErr := r.FormFile("foreground_file")
	bgFile, bgHeader, bgErr := r.FormFile("background_file")
	if fgFile != nil {
		defer fgFile.Close()
	}
	if bgFile != nil {
		defer bgFile.Close()
	}
	if fgErr != nil || bgErr != nil {
		writeError(w, http.StatusBadRequest, "Missing one or both files in the request")
		return nil, nil, false
	}
	if fgHeader.Filename == "" || bgHeader.Filename == "" {
		writeError(w, http.StatusBadRequest, "One or both files are not selected")
		return nil, nil, false
	}

	fgImage, err := decodeUpload(fgFile)
	if err != nil {
		h.internalError(w, "decoding foreground failed", err)
		return nil, nil, false
	}
	bgImage, err := decodeUpload(bgFile)
	if err != nil {
		h.internalError(w, "decoding background failed", err)
		return nil, nil, false
	}
	return fgImage, bgImage, true
}

func (h *MergeHandler) internalError(w http.ResponseWriter, stage string, err error) {
	slog.Error("Pipeline failed", "stage", stage, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "An internal server error occurred",
		"details": err.Error(),
	})
}

func decodeUpload(file io.Reader) (image.Image, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return compositor.Decode(data)
}
