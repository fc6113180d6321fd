package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Comfy   ComfyConfig   `yaml:"comfy"`
	Removal RemovalConfig `yaml:"removal"`
	Storage StorageConfig `yaml:"storage"`
	FTP     FTPConfig     `yaml:"ftp"`
	Publish PublishConfig `yaml:"publish"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// ComfyConfig holds settings for the ComfyUI generation service.
type ComfyConfig struct {
	// Host is the host:port of the service, without scheme. The HTTP client
	// dials http://<host>, the completion watcher dials ws://<host>/ws.
	Host string `yaml:"host"`
	// WorkflowPath points at the exported workflow-API JSON graph.
	WorkflowPath string `yaml:"workflow_path"`
	// LoadImageNodeID and SaveImageNodeID name the two nodes mutated per
	// request (input asset, output filename prefix).
	LoadImageNodeID string `yaml:"load_image_node_id"`
	SaveImageNodeID string `yaml:"save_image_node_id"`
	// WatchTimeout bounds the wait for a completion event.
	WatchTimeout Duration `yaml:"watch_timeout"`
}

// RemovalConfig holds settings for the background-removal step.
type RemovalConfig struct {
	Provider string `yaml:"provider"` // "service", "none"
	URL      string `yaml:"url"`      // endpoint for the "service" provider
}

// StorageConfig holds the two local image directories.
type StorageConfig struct {
	MergedDir string `yaml:"merged_dir"`
	FinalDir  string `yaml:"final_dir"`
}

// FTPConfig holds credentials for the publish target.
// All four fields come from the environment (FTP_HOST, FTP_USER, FTP_PASS,
// FTP_TARGET_DIR); the YAML values act as defaults for local setups.
type FTPConfig struct {
	Host      string `yaml:"host"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	TargetDir string `yaml:"target_dir"`
}

// PublishConfig holds settings for building the public URL.
type PublishConfig struct {
	// BasePublicURL is prepended to the final filename to form the
	// shareable URL. Environment: BASE_PUBLIC_URL.
	BasePublicURL string `yaml:"base_public_url"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address: "localhost:5000",
		},
		Log: LogConfig{
			Level: "INFO",
		},
		Comfy: ComfyConfig{
			Host:            "127.0.0.1:8188",
			WorkflowPath:    "configs/workflow_api.json",
			LoadImageNodeID: "16",
			SaveImageNodeID: "35",
			WatchTimeout:    Duration(10 * time.Minute),
		},
		Removal: RemovalConfig{
			Provider: "service",
		},
		Storage: StorageConfig{
			MergedDir: "merged_images",
			FinalDir:  "final_images",
		},
	}
}

// Load reads the configuration from the given path, applying defaults and
// environment overrides. A missing file is not an error; defaults plus
// environment are used.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays deployment-specific values from the environment.
// Environment always wins over YAML for credentials.
func (c *Config) applyEnv() {
	overlay(&c.FTP.Host, "FTP_HOST")
	overlay(&c.FTP.User, "FTP_USER")
	overlay(&c.FTP.Password, "FTP_PASS")
	overlay(&c.FTP.TargetDir, "FTP_TARGET_DIR")
	overlay(&c.Publish.BasePublicURL, "BASE_PUBLIC_URL")
	overlay(&c.Comfy.Host, "COMFYUI_URL")
	overlay(&c.Removal.URL, "REMOVAL_SERVICE_URL")
}

func overlay(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Save writes the configuration to the given path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault writes a default config file if none exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, do nothing
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
