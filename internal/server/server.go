// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the wiring layer between app.App and HTTP. It decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// The services themselves are built by internal/app, so the server and
// boardctl share exactly one composition root.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/suggestion-board/internal/app"
	"github.com/sakif/suggestion-board/internal/auth"
	"github.com/sakif/suggestion-board/internal/handler"
	"github.com/sakif/suggestion-board/internal/middleware"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the App and therefore the document store. Start closes
// it after the HTTP server has drained.
type Server struct {
	router  *chi.Mux
	app     *app.App
	logger  *slog.Logger
	streams *handler.ViewHandler
	// stop ends background work started by New (the rate limiter sweep).
	stop    context.CancelFunc
}

// New builds the router for a. The API is authenticated, so a JWT secret
// is required.
func New(a *app.App) (*Server, error) {
	if a.Tokens == nil {
		return nil, errors.New("server: auth.jwt_secret (JWT_SECRET) must be set")
	}

	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		router: chi.NewRouter(),
		app:    a,
		logger: a.Logger,
		stop:   stop,
	}
	s.setupRoutes(ctx)
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz                                 liveness
// POST   /auth/session, /auth/logout              browser cookie
// GET    /api/me                                  caller identity
// *      /api/boards/...                          board registry
// *      /api/boards/{boardID}/suggestions        list, create
// *      /api/suggestions/{id}/...                vote, boost, delete, reports
// GET    /api/boards/{boardID}/views[/stream]     projections
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID, RealIP: request metadata the logger reads
// 2. Recoverer: a panic becomes a 500 instead of a crash
// 3. Logger: one line per request
// 4. (API only) RequireAuth, RecordIdentity, then the per-user write limit
func (s *Server) setupRoutes(ctx context.Context) {
	cfg := s.app.Config

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := handler.NewAuthHandler(s.app.Tokens, cfg.Auth.TokenTTL, cfg.Server.SecureCookie, s.logger)
	s.router.Post("/auth/session", authHandler.HandleSession)
	s.router.Post("/auth/logout", authHandler.HandleLogout)

	boardHandler := handler.NewBoardHandler(s.app.Boards, s.logger)
	suggestionHandler := handler.NewSuggestionHandler(s.app.Suggestions, s.logger)
	viewHandler := handler.NewViewHandler(s.app.Suggestions, s.logger)
	s.streams = viewHandler

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(s.app.Tokens))
		r.Use(middleware.RecordIdentity)
		if rl := cfg.Server.RateLimit; rl.RPS > 0 {
			r.Use(middleware.NewRateLimiter(ctx, rl.RPS, rl.Burst).Writes)
		}

		r.Get("/me", authHandler.HandleMe)
		boardHandler.Routes(r)
		suggestionHandler.Routes(r)
		viewHandler.Routes(r)
	})
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Cancel open view streams, which would otherwise never finish
// 3. Wait for in-flight requests to finish (30s timeout)
// 4. Close the store (flushes WAL, drops Redis subscriptions)
func (s *Server) Start() error {
	defer s.app.Close()
	defer s.stop()

	port := s.app.Config.Server.Port

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	// Only the view streams are cut; other requests finish normally.
	srv.RegisterOnShutdown(s.streams.CloseStreams)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", port)),
			slog.String("store", s.app.Config.Store.Driver),
			slog.String("mode", s.app.Config.Board.Mode),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
