// Package config loads server and CLI settings.
//
// PRECEDENCE (later wins):
//  1. Defaults()
//  2. the YAML file, when a path is given
//  3. a .env file in the working directory, when present
//  4. environment variables
//
// The .env file only fills variables that are not already set, so a real
// environment always beats it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sakif/suggestion-board/internal/economy"
	"github.com/sakif/suggestion-board/internal/ledger"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config is the full settings tree.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Auth   AuthConfig   `yaml:"auth"`
	Board  BoardConfig  `yaml:"board"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Port         int             `yaml:"port"`
	SecureCookie bool            `yaml:"secure_cookie"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig bounds write requests per caller. RPS <= 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type StoreConfig struct {
	Driver        string `yaml:"driver"`
	SQLitePath    string `yaml:"sqlite_path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// BoardConfig selects the board scope and the voting rules.
type BoardConfig struct {
	Mode           string   `yaml:"mode"`
	GlobalID       string   `yaml:"global_id"`
	GlobalName     string   `yaml:"global_name"`
	GlobalAdmins   []string `yaml:"global_admins"`
	Quorum         string   `yaml:"quorum"`
	QuorumFraction float64  `yaml:"quorum_fraction"`
	BoostRule      string   `yaml:"boost_rule"`
	EconomyScope   string   `yaml:"economy_scope"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns a configuration that runs a single local server.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      8080,
			RateLimit: RateLimitConfig{RPS: 5, Burst: 20},
		},
		Store: StoreConfig{
			Driver:      DriverSQLite,
			SQLitePath:  "data/board.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "board:",
		},
		Auth: AuthConfig{TokenTTL: 24 * time.Hour},
		Board: BoardConfig{
			Mode:           "multi",
			GlobalID:       "global",
			GlobalName:     "Suggestions",
			Quorum:         ledger.QuorumAny,
			QuorumFraction: ledger.DefaultQuorumFraction,
			BoostRule:      ledger.RuleReinforce,
			EconomyScope:   economy.ScopeMember,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. path may be empty to skip the YAML file.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables read through lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT value %q: %w", v, err)
		}
		c.Server.Port = port
	}
	str("STORE_DRIVER", &c.Store.Driver)
	str("DB_PATH", &c.Store.SQLitePath)
	str("REDIS_ADDR", &c.Store.RedisAddr)
	str("REDIS_PASSWORD", &c.Store.RedisPassword)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("BOARD_MODE", &c.Board.Mode)
	str("LOG_LEVEL", &c.Log.Level)
	if v, ok := lookup("BOARD_ADMINS"); ok && v != "" {
		c.Board.GlobalAdmins = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects values the rest of the program could not act on.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite driver"))
		}
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	switch c.Board.Mode {
	case "multi":
	case "global":
		if strings.TrimSpace(c.Board.GlobalID) == "" {
			errs = append(errs, errors.New("board.global_id is required in global mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown board.mode %q", c.Board.Mode))
	}

	if _, err := ledger.ParseQuorum(c.Board.Quorum, c.Board.QuorumFraction); err != nil {
		errs = append(errs, err)
	}
	if _, err := ledger.ParseBoostRule(c.Board.BoostRule); err != nil {
		errs = append(errs, err)
	}
	if _, err := economy.ParseScope(c.Board.EconomyScope); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log.level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
