package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/freshpress/laundrypos/internal/cli/config"
	"github.com/freshpress/laundrypos/internal/database"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// NewCommandContext collects the loaded configuration and the logger.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig(cmd.Context())
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:    cfg,
		Logger: config.GetLogger(cmd.Context()),
	}, nil
}

// OpenDatabase selects and bootstraps a backend and waits until it is ready.
// The caller must Close the returned service.
func (c *CommandContext) OpenDatabase(ctx context.Context, strict bool) (*database.DB, error) {
	dbCfg := c.Cfg.ToDatabaseConfig()
	if strict {
		dbCfg.StrictBootstrap = true
	}
	db, err := database.Connect(ctx, dbCfg, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// getConfig returns the configuration the root command stored in ctx,
// loading it from the environment when a command runs on its own.
func getConfig(ctx context.Context) (*config.Config, error) {
	if cfg, ok := config.FromContext(ctx); ok {
		return cfg, nil
	}
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", nil)
}
