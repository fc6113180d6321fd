package removal

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"
)

// ServiceProvider calls an external rembg-style HTTP endpoint: it posts the
// image as PNG and expects a PNG with an alpha channel back.
type ServiceProvider struct {
	url        string
	httpClient *http.Client
}

// NewServiceProvider creates a provider for the given endpoint URL.
func NewServiceProvider(url string) *ServiceProvider {
	return &ServiceProvider{
		url:        url,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Remove implements Remover.
func (p *ServiceProvider) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	var encoded bytes.Buffer
	if err := png.Encode(&encoded, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for removal service: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "input.png")
	if err != nil {
		return nil, fmt.Errorf("failed to build removal request: %w", err)
	}
	if _, err := part.Write(encoded.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to build removal request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build removal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create removal request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("removal service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("Removal service returned error status", "status", resp.StatusCode)
		return nil, fmt.Errorf("removal service returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read removal response: %w", err)
	}

	cutout, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode removal response: %w", err)
	}
	return cutout, nil
}
