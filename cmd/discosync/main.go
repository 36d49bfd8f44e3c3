package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"discosync/config"
	"discosync/internal/listenbrainz"
	"discosync/internal/pipeline"
	"discosync/internal/state"
	"discosync/internal/subsonic"
	"discosync/internal/video"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "Path to config file")
	flag.Parse()

	// Credentials may live in a .env file next to the binary.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Setup logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx := context.Background()

	backend, err := newStateBackend(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create state backend", "error", err)
		os.Exit(1)
	}

	feed := listenbrainz.NewClient(cfg.ListenBrainz.BaseURL, cfg.ListenBrainz.User)
	library := subsonic.NewClient(cfg.Subsonic.URL, cfg.Subsonic.User, cfg.Subsonic.Password)
	videos := video.NewSource(
		video.NewSearcher(video.NewYouTubeClient(nil), cfg.Video.ResultLimit),
		video.NewDownloader(cfg.LibraryPath),
	)

	p := pipeline.New(cfg, feed, library, videos, state.NewStore(backend))
	if err := p.Run(ctx); err != nil {
		slog.Error("Run failed", "error", err)
		os.Exit(1)
	}
}

func newStateBackend(ctx context.Context, cfg *config.Config) (state.Backend, error) {
	switch cfg.State.Type {
	case "local":
		return state.NewLocalBackend(cfg.State.Dir)
	case "gcs":
		return state.NewGCSBackend(ctx, cfg.State.Bucket, cfg.State.ObjectPrefix, cfg.State.CredentialsFile)
	default:
		return nil, fmt.Errorf("unknown state backend type: %s", cfg.State.Type)
	}
}
