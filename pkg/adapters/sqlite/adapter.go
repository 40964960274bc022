package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/freshpress/laundrypos/pkg/adapter"
	"github.com/freshpress/laundrypos/pkg/core"
	"github.com/freshpress/laundrypos/pkg/dialect"
	"golang.org/x/sync/semaphore"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const busyTimeoutMillis = 5000

// Adapter implements the adapter.Adapter interface for an SQLite file.
//
// The database runs on a single connection. Every statement and every
// session acquires the same weighted semaphore, so callers are serialized
// and a session keeps exclusive use of the connection from BEGIN until
// Release.
type Adapter struct {
	adapter.BaseSQLAdapter
	lock *semaphore.Weighted
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tr, _ := dialect.For(core.KindSQLite)
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, Translator: tr},
		lock:           semaphore.NewWeighted(1),
	}
}

// Kind returns core.KindSQLite.
func (a *Adapter) Kind() core.Kind { return core.KindSQLite }

// Connect opens (creating if needed) the database file with WAL journaling
// and foreign key enforcement.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = core.DefaultSQLitePath
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
	}

	a.Logger.Debug("opening sqlite database", slog.String("path", path))

	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	cfg.Path = path
	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildDSN returns a modernc.org/sqlite DSN with the pragmas applied to
// every connection.
func buildDSN(path string) string {
	pragmas := fmt.Sprintf("_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)", busyTimeoutMillis)
	if path == ":memory:" {
		return "file::memory:?cache=shared&" + pragmas
	}
	return "file:" + path + "?" + pragmas + "&_pragma=journal_mode(WAL)"
}

// Query runs canonical SQL while holding the connection lock.
func (a *Adapter) Query(ctx context.Context, sqlStr string, params ...any) (core.Result, error) {
	if a.DB == nil {
		return nil, core.ErrNotConnected
	}
	if err := a.lock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer a.lock.Release(1)
	return a.QueryOn(ctx, a.DB, sqlStr, params...)
}

// ExecScript runs a multi-statement script while holding the connection lock.
func (a *Adapter) ExecScript(ctx context.Context, script string) error {
	if a.DB == nil {
		return core.ErrNotConnected
	}
	if err := a.lock.Acquire(ctx, 1); err != nil {
		return err
	}
	defer a.lock.Release(1)
	return a.ExecScriptOn(ctx, a.DB, script)
}

// BeginSession takes the connection lock and issues BEGIN. The lock is held
// until the session is released.
func (a *Adapter) BeginSession(ctx context.Context) (*adapter.Session, error) {
	if a.DB == nil {
		return nil, core.ErrNotConnected
	}
	s := adapter.NewSession(core.KindSQLite, &txHandle{a: a}, a.Logger)
	if err := s.Begin(ctx); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

// txHandle drives a transaction with explicit BEGIN/COMMIT/ROLLBACK
// statements on the single connection.
type txHandle struct {
	a      *Adapter
	conn   *sql.Conn
	locked bool
}

func (h *txHandle) Begin(ctx context.Context) error {
	if err := h.a.lock.Acquire(ctx, 1); err != nil {
		return err
	}
	h.locked = true

	conn, err := h.a.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	h.conn = conn
	_, err = conn.ExecContext(ctx, "BEGIN")
	return err
}

func (h *txHandle) Query(ctx context.Context, sqlStr string, params ...any) (core.Result, error) {
	return h.a.QueryOn(ctx, h.conn, sqlStr, params...)
}

func (h *txHandle) Commit(ctx context.Context) error {
	_, err := h.conn.ExecContext(ctx, "COMMIT")
	return err
}

func (h *txHandle) Rollback(ctx context.Context) error {
	_, err := h.conn.ExecContext(ctx, "ROLLBACK")
	return err
}

func (h *txHandle) Release() {
	if h.conn != nil {
		_ = h.conn.Close()
		h.conn = nil
	}
	if h.locked {
		h.a.lock.Release(1)
		h.locked = false
	}
}
