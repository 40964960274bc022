package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/freshpress/laundrypos/pkg/adapter"
	"github.com/freshpress/laundrypos/pkg/core"

	// Register every backend with the adapter registry.
	_ "github.com/freshpress/laundrypos/pkg/adapters/mysql"
	_ "github.com/freshpress/laundrypos/pkg/adapters/postgres"
	_ "github.com/freshpress/laundrypos/pkg/adapters/sqlite"
)

// connectFunc creates and connects an adapter. Tests replace it.
type connectFunc func(ctx context.Context, cfg core.AdapterConfig, logger *slog.Logger) (adapter.Adapter, error)

func connectRegistered(ctx context.Context, cfg core.AdapterConfig, logger *slog.Logger) (adapter.Adapter, error) {
	a, err := adapter.NewAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// Select binds exactly one backend, probing in priority order:
// Postgres (only when a URL is configured or the type asks for it), then
// MySQL (unless the type is sqlite), then the SQLite file. It fails only
// when every attempt fails, or when an explicitly configured URL cannot be
// reached.
func Select(ctx context.Context, cfg Config, logger *slog.Logger) (adapter.Adapter, error) {
	return selectWith(ctx, cfg, logger, connectRegistered)
}

func selectWith(ctx context.Context, cfg Config, logger *slog.Logger, connect connectFunc) (adapter.Adapter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	override := core.KindUnknown
	if cfg.Type != "" {
		k, err := core.ParseKind(cfg.Type)
		if err != nil {
			return nil, &core.ConfigError{Kind: core.KindUnknown, Msg: "invalid backend type", Err: err}
		}
		override = k
	}

	var errs []error

	if cfg.URL != "" || override == core.KindPostgres {
		pg := cfg.postgres()
		a, err := connect(ctx, pg, logger)
		if err == nil {
			logger.Info("connected to postgres", "target", pg.Target())
			return a, nil
		}
		if cfg.URL != "" {
			return nil, &core.ConfigError{Kind: core.KindPostgres, Msg: "explicit connection string unreachable", Err: err}
		}
		logger.Warn("postgres unavailable, falling back", "error", err)
		errs = append(errs, fmt.Errorf("postgres: %w", err))
	}

	if override != core.KindSQLite {
		my := cfg.mysql()
		a, err := connect(ctx, my, logger)
		if err == nil {
			logger.Info("connected to mysql", "target", my.Target())
			return a, nil
		}
		logger.Warn("mysql unavailable, falling back to sqlite", "error", err)
		errs = append(errs, fmt.Errorf("mysql: %w", err))
	}

	lite := cfg.sqlite()
	a, err := connect(ctx, lite, logger)
	if err == nil {
		logger.Info("using sqlite database", "path", lite.Path)
		return a, nil
	}
	errs = append(errs, fmt.Errorf("sqlite: %w", err))
	return nil, fmt.Errorf("no database backend available: %w", errors.Join(errs...))
}
