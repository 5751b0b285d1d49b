// Package main is the entry point for the IntentFlow API server.
// It loads configuration, sets up logging, and starts the server; all actual
// logic lives in the internal packages.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/intentflow/backend/internal/config"
	"github.com/intentflow/backend/internal/server"
)

func main() {
	// Config first: a missing JWT secret outside development must stop the
	// process before anything else is wired up.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))

	if cfg.UsingDevSecret() {
		logger.Warn("jwt.secret not set, using the development fallback; tokens are forgeable")
	}
	if cfg.GitHub.ClientID == "" {
		logger.Warn("GitHub OAuth not configured, identity-provider login routes disabled")
	}

	// Create the database directory if needed (like `mkdir -p`).
	if dbDir := filepath.Dir(cfg.Database.Path); dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down via SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
