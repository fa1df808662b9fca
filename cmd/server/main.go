// Package main is the entry point for the suggestion board API server.
//
// MAIN PACKAGE:
// main stays minimal. Its job is to:
// 1. Read configuration (config file, .env, environment)
// 2. Create the logger and the app (store, repositories, services)
// 3. Start the server
//
// All actual logic lives in internal/.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sakif/suggestion-board/internal/app"
	"github.com/sakif/suggestion-board/internal/config"
	"github.com/sakif/suggestion-board/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// BOARD_CONFIG points at an optional YAML file. Environment variables
	// (PORT, STORE_DRIVER, JWT_SECRET, ...) override it either way.
	cfg, err := config.Load(os.Getenv("BOARD_CONFIG"))
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	logger := app.NewLogger(cfg.Log, os.Stdout)

	// === 3. BUILD THE APP ===
	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(a)
	if err != nil {
		a.Close()
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
