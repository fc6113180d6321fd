// Package removal turns a photograph into a subject cutout with an alpha
// channel. The actual segmentation model lives behind an external service;
// this package only defines the boundary and its providers.
package removal

import (
	"context"
	"fmt"
	"image"

	"mergeflow/pkg/config"
)

// Remover produces a copy of img whose background pixels are transparent.
type Remover interface {
	Remove(ctx context.Context, img image.Image) (image.Image, error)
}

// New selects a provider based on configuration.
func New(cfg config.RemovalConfig) (Remover, error) {
	switch cfg.Provider {
	case "service", "":
		if cfg.URL == "" {
			return nil, fmt.Errorf("removal provider %q requires a service URL", "service")
		}
		return NewServiceProvider(cfg.URL), nil
	case "none":
		return Passthrough{}, nil
	default:
		return nil, fmt.Errorf("unknown removal provider: %s", cfg.Provider)
	}
}

// Passthrough returns the input unchanged. Useful for local testing and for
// foregrounds that already carry transparency.
type Passthrough struct{}

// Remove implements Remover.
func (Passthrough) Remove(_ context.Context, img image.Image) (image.Image, error) {
	return img, nil
}
