// Package database owns the process-wide database service: it selects a
// backend once, bootstraps it, and exposes the bound adapter to the rest of
// the application behind a single readiness signal.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/freshpress/laundrypos/pkg/adapter"
	"github.com/freshpress/laundrypos/pkg/core"
)

// DB is the database service. Construct it with Open and pass it to the
// components that need it. It is immutable once ready.
type DB struct {
	cfg    Config
	logger *slog.Logger

	ready   chan struct{}
	adapter adapter.Adapter
	err     error

	closeOnce sync.Once
	closeErr  error
}

// Open starts backend selection and bootstrap in the background and returns
// immediately. Every operation waits for initialization to finish.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) *DB {
	return open(ctx, cfg, logger, connectRegistered)
}

// Connect is Open followed by Ready.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	db := Open(ctx, cfg, logger)
	if err := db.Ready(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

func open(ctx context.Context, cfg Config, logger *slog.Logger, connect connectFunc) *DB {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db := &DB{
		cfg:    cfg,
		logger: logger,
		ready:  make(chan struct{}),
	}
	go db.init(context.WithoutCancel(ctx), connect)
	return db
}

func (db *DB) init(ctx context.Context, connect connectFunc) {
	defer close(db.ready)

	a, err := selectWith(ctx, db.cfg, db.logger, connect)
	if err != nil {
		db.logger.Error("database initialization failed", "error", err)
		db.err = err
		return
	}

	if !db.cfg.SkipBootstrap {
		if err := Bootstrap(ctx, a, db.cfg.Bootstrap, db.logger); err != nil {
			if db.cfg.StrictBootstrap {
				_ = a.Close()
				db.err = fmt.Errorf("bootstrap %s: %w", a.Kind(), err)
				return
			}
			db.logger.Warn("bootstrap incomplete", "backend", a.Kind().String(), "error", err)
		}
	}

	db.adapter = a
	db.logger.Info("database ready", "backend", a.Kind().String())
}

// Ready blocks until initialization has finished and returns its error.
// It may be called any number of times from any goroutine.
func (db *DB) Ready(ctx context.Context) error {
	select {
	case <-db.ready:
		return db.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Kind returns the bound backend, or core.KindUnknown while initialization
// is still running or after it failed.
func (db *DB) Kind() core.Kind {
	select {
	case <-db.ready:
		if db.adapter != nil {
			return db.adapter.Kind()
		}
	default:
	}
	return core.KindUnknown
}

// Adapter waits for readiness and returns the bound adapter.
func (db *DB) Adapter(ctx context.Context) (adapter.Adapter, error) {
	if err := db.Ready(ctx); err != nil {
		return nil, err
	}
	return db.adapter, nil
}

// Query runs canonical SQL on the bound backend.
func (db *DB) Query(ctx context.Context, sql string, params ...any) (core.Result, error) {
	a, err := db.Adapter(ctx)
	if err != nil {
		return nil, err
	}
	return a.Query(ctx, sql, params...)
}

// GetConnection opens a transaction session. The caller must Release it.
func (db *DB) GetConnection(ctx context.Context) (*adapter.Session, error) {
	a, err := db.Adapter(ctx)
	if err != nil {
		return nil, err
	}
	return a.BeginSession(ctx)
}

// WithTransaction runs fn in a session, committing on success and rolling
// back on error or panic.
func (db *DB) WithTransaction(ctx context.Context, fn func(*adapter.Session) error) error {
	a, err := db.Adapter(ctx)
	if err != nil {
		return err
	}
	return adapter.WithSession(ctx, a, fn)
}

// Close waits for initialization and closes the bound backend.
func (db *DB) Close() error {
	<-db.ready
	db.closeOnce.Do(func() {
		if db.adapter != nil {
			db.closeErr = db.adapter.Close()
		}
	})
	return db.closeErr
}
