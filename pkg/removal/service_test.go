package removal

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mergeflow/pkg/config"
)

func TestServiceProviderRoundTrip(t *testing.T) {
	cutout := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	cutout.SetNRGBA(1, 1, color.NRGBA{R: 255, A: 255})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("file")
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, cutout))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	p := NewServiceProvider(srv.URL)
	got, err := p.Remove(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), got.Bounds())
}

func TestServiceProviderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewServiceProvider(srv.URL)
	_, err := p.Remove(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	assert.ErrorContains(t, err, "status 503")
}

func TestNewSelectsProvider(t *testing.T) {
	_, err := New(config.RemovalConfig{Provider: "service"})
	assert.Error(t, err, "service provider without URL must fail")

	p, err := New(config.RemovalConfig{Provider: "none"})
	require.NoError(t, err)
	assert.IsType(t, Passthrough{}, p)

	_, err = New(config.RemovalConfig{Provider: "magic"})
	assert.ErrorContains(t, err, "unknown removal provider")
}
