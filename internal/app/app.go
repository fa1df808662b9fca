// Package app is the composition root shared by the server and boardctl.
//
// It turns a config.Config into a running set of services:
//
//	config → docstore.Store → repositories → services
//
// Nothing below this package reads configuration or constructs its own
// collaborators.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/suggestion-board/internal/auth"
	"github.com/sakif/suggestion-board/internal/config"
	"github.com/sakif/suggestion-board/internal/docstore"
	"github.com/sakif/suggestion-board/internal/docstore/memory"
	"github.com/sakif/suggestion-board/internal/docstore/redis"
	"github.com/sakif/suggestion-board/internal/docstore/sqlite"
	"github.com/sakif/suggestion-board/internal/economy"
	"github.com/sakif/suggestion-board/internal/ledger"
	"github.com/sakif/suggestion-board/internal/repository/document"
	"github.com/sakif/suggestion-board/internal/service"
)

// App owns the store and every service built on it.
type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Store       docstore.Store
	Boards      *service.BoardService
	Suggestions *service.SuggestionService
	// Tokens is nil when no JWT secret is configured.
	Tokens *auth.TokenService
}

// NewLogger builds the process logger from the log settings.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// OpenStore connects the configured document store.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (docstore.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil

	case config.DriverSQLite:
		if cfg.SQLitePath != ":memory:" {
			dir := filepath.Dir(cfg.SQLitePath)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
			}
		}
		db, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return db, nil

	case config.DriverRedis:
		rs, err := redis.New(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		return rs, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Rules parses the voting rules out of the board settings.
func Rules(cfg config.BoardConfig) (service.Rules, error) {
	quorum, err := ledger.ParseQuorum(cfg.Quorum, cfg.QuorumFraction)
	if err != nil {
		return service.Rules{}, err
	}
	boost, err := ledger.ParseBoostRule(cfg.BoostRule)
	if err != nil {
		return service.Rules{}, err
	}
	scope, err := economy.ParseScope(cfg.EconomyScope)
	if err != nil {
		return service.Rules{}, err
	}
	return service.Rules{Quorum: quorum, Boost: boost, Economy: scope}, nil
}

// Scope maps the board settings onto a BoardScope.
func Scope(cfg config.BoardConfig) service.BoardScope {
	return service.BoardScope{
		Mode:     cfg.Mode,
		GlobalID: cfg.GlobalID,
		Name:     cfg.GlobalName,
		Admins:   cfg.GlobalAdmins,
	}
}

// New opens the store, wires the services and creates the global board
// when the scope needs one.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	rules, err := Rules(cfg.Board)
	if err != nil {
		return nil, fmt.Errorf("parsing board rules: %w", err)
	}

	store, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}

	a, err := wire(ctx, cfg, logger, store, rules)
	if err != nil {
		store.Close()
		return nil, err
	}

	logger.Info("store ready",
		slog.String("driver", cfg.Store.Driver),
		slog.String("mode", cfg.Board.Mode),
		slog.String("boost_rule", rules.Boost.Name()),
		slog.String("economy_scope", rules.Economy.Name()),
	)
	return a, nil
}

func wire(ctx context.Context, cfg *config.Config, logger *slog.Logger, store docstore.Store, rules service.Rules) (*App, error) {
	repos := document.New(store, logger)
	d := service.Deps{
		Suggestions: repos.Suggestions,
		Boards:      repos.Boards,
		Accounts:    repos.Accounts,
		Rules:       rules,
		Scope:       Scope(cfg.Board),
		Logger:      logger,
	}

	a := &App{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		Boards:      service.NewBoardService(d),
		Suggestions: service.NewSuggestionService(d),
	}

	if cfg.Auth.JWTSecret != "" {
		tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return nil, err
		}
		a.Tokens = tokens
	}

	if err := a.Boards.Bootstrap(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
