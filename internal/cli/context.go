package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/suggestion-board/internal/app"
	"github.com/sakif/suggestion-board/internal/config"
	"github.com/sakif/suggestion-board/internal/model"
)

// CommandContext provides shared command resources.
type CommandContext struct {
	App      *app.App
	Who      model.Identity
	JSONMode bool
}

// Close releases the store.
func (c *CommandContext) Close() error {
	return c.App.Close()
}

// GetContext loads configuration, applies the persistent flag overrides and
// opens the app. The caller must Close the result.
func GetContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		cfg.Log.Level = "warn"
	}
	logger := app.NewLogger(cfg.Log, cmd.ErrOrStderr())

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}

	jsonMode, _ := cmd.Flags().GetBool("json")
	return &CommandContext{App: a, Who: identity(cmd), JSONMode: jsonMode}, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if driver, _ := cmd.Flags().GetString("driver"); driver != "" {
		cfg.Store.Driver = driver
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Store.SQLitePath = db
		if cfg.Store.Driver == config.DriverMemory {
			cfg.Store.Driver = config.DriverSQLite
		}
	}
	return cfg, cfg.Validate()
}

func identity(cmd *cobra.Command) model.Identity {
	id, _ := cmd.Flags().GetString("as")
	name, _ := cmd.Flags().GetString("name")
	id = strings.TrimSpace(id)
	if name == "" {
		name = id
	}
	return model.Identity{ID: id, DisplayName: name}
}

var errNoIdentity = errors.New("--as is required")

// withContext runs fn with an opened context and an identity, closing the
// store afterwards.
func withContext(cmd *cobra.Command, fn func(ctx context.Context, c *CommandContext) error) error {
	c, err := GetContext(cmd)
	if err != nil {
		return writeCommandError(cmd, err)
	}
	defer c.Close()

	if c.Who.ID == "" {
		return writeCommandError(cmd, errNoIdentity)
	}
	if err := fn(cmd.Context(), c); err != nil {
		return writeCommandError(cmd, err)
	}
	return nil
}
