// Package comfy talks to a ComfyUI-compatible generation service: asset
// upload, job submission, output retrieval, and the websocket completion
// watcher.
package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"
)

// Client wraps the three synchronous HTTP calls to the generation service.
// No retries happen at this layer; every call either succeeds with a typed
// result or fails with a TransportError or ProtocolError.
type Client struct {
	host       string // host:port, no scheme
	httpClient *http.Client
}

// NewClient creates a client for the service at host (host:port).
func NewClient(host string) *Client {
	return &Client{
		host:       host,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Host returns the configured host:port.
func (c *Client) Host() string { return c.host }

// UploadImage submits image bytes as an asset via POST /upload/image and
// returns the name the service assigned. The overwrite flag is always set.
func (c *Client) UploadImage(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	if err := writer.WriteField("overwrite", "true"); err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}

	respBody, err := c.post(ctx, "upload", "/upload/image", &body, writer.FormDataContentType())
	if err != nil {
		return "", err
	}

	var parsed struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.Name == "" {
		return "", &ProtocolError{Op: "upload", Field: "name"}
	}

	slog.Info("Asset uploaded to generation service", "name", parsed.Name)
	return parsed.Name, nil
}

// QueuePrompt submits a bound workflow graph via POST /prompt and returns
// the assigned prompt id. clientID correlates the submission with the
// websocket completion channel.
func (c *Client) QueuePrompt(ctx context.Context, graph json.RawMessage, clientID string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"prompt":    graph,
		"client_id": clientID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build prompt payload: %w", err)
	}

	respBody, err := c.post(ctx, "queue", "/prompt", bytes.NewReader(payload), "application/json")
	if err != nil {
		return "", err
	}

	var parsed struct {
		PromptID string `json:"prompt_id"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil || parsed.PromptID == "" {
		return "", &ProtocolError{Op: "queue", Field: "prompt_id"}
	}

	slog.Info("Prompt queued", "prompt_id", parsed.PromptID, "client_id", clientID)
	return parsed.PromptID, nil
}

// View fetches output bytes via GET /view.
func (c *Client) View(ctx context.Context, filename, subfolder, folderType string) ([]byte, error) {
	params := url.Values{}
	params.Set("filename", filename)
	params.Set("subfolder", subfolder)
	params.Set("type", folderType)

	u := fmt.Sprintf("http://%s/view?%s", c.host, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create view request: %w", err)
	}
	return c.do("view", req)
}

func (c *Client) post(ctx context.Context, op, path string, body io.Reader, contentType string) ([]byte, error) {
	u := fmt.Sprintf("http://%s%s", c.host, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(op, req)
}

func (c *Client) do(op string, req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	return data, nil
}
