package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8188", cfg.Comfy.Host)
	assert.Equal(t, "16", cfg.Comfy.LoadImageNodeID)
	assert.Equal(t, "35", cfg.Comfy.SaveImageNodeID)
	assert.Equal(t, 10*time.Minute, cfg.Comfy.WatchTimeout.Std())
	assert.Equal(t, "merged_images", cfg.Storage.MergedDir)
	assert.Equal(t, "final_images", cfg.Storage.FinalDir)
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mergeflow.yaml")
	data := []byte(`
server:
  address: "0.0.0.0:9000"
comfy:
  host: "comfy.internal:8188"
  watch_timeout: "90s"
storage:
  merged_dir: "/tmp/merged"
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Address)
	assert.Equal(t, "comfy.internal:8188", cfg.Comfy.Host)
	assert.Equal(t, 90*time.Second, cfg.Comfy.WatchTimeout.Std())
	assert.Equal(t, "/tmp/merged", cfg.Storage.MergedDir)
	// Untouched sections keep their defaults.
	assert.Equal(t, "final_images", cfg.Storage.FinalDir)
}

func TestEnvOverridesYAML(t *testing.T) {
	t.Setenv("FTP_HOST", "ftp.example.com")
	t.Setenv("FTP_USER", "uploader")
	t.Setenv("FTP_PASS", "secret")
	t.Setenv("FTP_TARGET_DIR", "/public_html/images")
	t.Setenv("BASE_PUBLIC_URL", "https://cdn.example.com/images/")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "ftp.example.com", cfg.FTP.Host)
	assert.Equal(t, "uploader", cfg.FTP.User)
	assert.Equal(t, "secret", cfg.FTP.Password)
	assert.Equal(t, "/public_html/images", cfg.FTP.TargetDir)
	assert.Equal(t, "https://cdn.example.com/images/", cfg.Publish.BasePublicURL)
}

func TestGenerateDefaultRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "mergeflow.yaml")
	require.NoError(t, GenerateDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Comfy.Host, cfg.Comfy.Host)

	// Second call must not clobber an existing file.
	require.NoError(t, os.WriteFile(path, []byte("server:\n  address: \"x:1\"\n"), 0o644))
	require.NoError(t, GenerateDefault(path))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "x:1", cfg.Server.Address)
}
