// Package compositor merges a foreground subject onto a background image.
// It is pure image math: no network I/O, no filesystem access. Persisting
// the result is the caller's responsibility.
package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	_ "image/jpeg" // register JPEG decoder

	"golang.org/x/image/draw"

	"mergeflow/pkg/removal"
)

// Composite removes the background from fg, scales the cutout to the width
// of bg (preserving aspect ratio, height truncated to integer), centers it
// horizontally, aligns its bottom edge with the bottom of bg, and pastes it
// using the cutout's own alpha channel as the mask.
//
// The result always has bg's exact dimensions. If the scaled cutout is
// taller than bg, its top is clipped off-canvas; that is expected for
// portrait subjects on squat backgrounds, not an error.
func Composite(ctx context.Context, fg, bg image.Image, remover removal.Remover) (*image.RGBA, error) {
	cutout, err := remover.Remove(ctx, fg)
	if err != nil {
		return nil, fmt.Errorf("background removal failed: %w", err)
	}

	bgBounds := bg.Bounds()
	bgW, bgH := bgBounds.Dx(), bgBounds.Dy()
	fgBounds := cutout.Bounds()
	fgW, fgH := fgBounds.Dx(), fgBounds.Dy()
	if fgW == 0 || fgH == 0 || bgW == 0 || bgH == 0 {
		return nil, fmt.Errorf("degenerate image dimensions: fg %dx%d, bg %dx%d", fgW, fgH, bgW, bgH)
	}

	newW := bgW
	newH := fgH * bgW / fgW

	scaled := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), cutout, fgBounds, draw.Src, nil)

	canvas := image.NewRGBA(image.Rect(0, 0, bgW, bgH))
	draw.Draw(canvas, canvas.Bounds(), bg, bgBounds.Min, draw.Src)

	posX := (bgW - newW) / 2
	posY := bgH - newH // negative when the cutout is taller than bg
	draw.Draw(canvas, image.Rect(posX, posY, posX+newW, posY+newH), scaled, image.Point{}, draw.Over)

	return canvas, nil
}

// Decode reads an image in any registered format (PNG, JPEG).
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// EncodePNG flattens an image to PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
