package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mergeflow/internal/api"
	"mergeflow/pkg/comfy"
	"mergeflow/pkg/config"
	"mergeflow/pkg/logging"
	"mergeflow/pkg/publish"
	"mergeflow/pkg/removal"
	"mergeflow/pkg/storage"
	"mergeflow/pkg/version"
	"mergeflow/pkg/workflow"
)

var (
	configPath = flag.String("config", "configs/mergeflow.yaml", "Path to config file")
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Credentials live in .env for local setups; absence is fine.
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded environment from .env")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("Mergeflow started", "version", version.Version)

	store, err := storage.New(cfg.Storage.MergedDir, cfg.Storage.FinalDir)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	remover, err := removal.New(cfg.Removal)
	if err != nil {
		return fmt.Errorf("failed to initialize background removal: %w", err)
	}

	template := workflow.NewTemplate(cfg.Comfy.WorkflowPath, cfg.Comfy.LoadImageNodeID, cfg.Comfy.SaveImageNodeID)
	if err := template.Validate(); err != nil {
		return fmt.Errorf("workflow template check failed: %w", err)
	}

	client := comfy.NewClient(cfg.Comfy.Host)
	watcher := comfy.NewWatcher(client, store, cfg.Comfy.WatchTimeout.Std())
	publisher := publish.NewFTP(cfg.FTP.Host, cfg.FTP.User, cfg.FTP.Password, cfg.FTP.TargetDir)

	if cfg.Publish.BasePublicURL == "" {
		slog.Warn("BASE_PUBLIC_URL is not set; successful pipelines will fail at the last step")
	}

	mergeH := api.NewMergeHandler(remover, store, client, watcher, template, publisher, cfg.Publish.BasePublicURL)
	imagesH := api.NewImageHandler(store)
	server := api.NewServer(cfg.Server.Address, mergeH, imagesH)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		slog.Info("Shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
