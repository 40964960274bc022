package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/freshpress/laundrypos/pkg/adapter"
	"github.com/freshpress/laundrypos/pkg/core"
	"github.com/freshpress/laundrypos/pkg/dialect"
	"github.com/go-sql-driver/mysql"
)

// Connection defaults used when the config leaves a field empty.
const (
	DefaultHost     = "localhost"
	DefaultPort     = 3306
	DefaultUser     = "root"
	DefaultDatabase = "laundry_db"
)

// Adapter implements the adapter.Adapter interface for MySQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates a new MySQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tr, _ := dialect.For(core.KindMySQL)
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, Translator: tr},
	}
}

// NewWithDB creates an adapter over an already opened handle.
func NewWithDB(db *sql.DB, logger *slog.Logger) *Adapter {
	a := New(logger)
	a.DB = db
	a.Cfg.Kind = core.KindMySQL
	return a
}

// Kind returns core.KindMySQL.
func (a *Adapter) Kind() core.Kind { return core.KindMySQL }

// Connect opens a pooled connection to MySQL and verifies it with a ping.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	mc, err := buildMySQLConfig(cfg)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to mysql",
		slog.String("addr", mc.Addr),
		slog.String("database", mc.DBName),
		slog.String("user", mc.User))

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return fmt.Errorf("failed to create mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(cfg.PoolSize())
	db.SetMaxIdleConns(cfg.PoolSize())

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping mysql: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// Query runs canonical SQL on the pool.
func (a *Adapter) Query(ctx context.Context, sqlStr string, params ...any) (core.Result, error) {
	if a.DB == nil {
		return nil, core.ErrNotConnected
	}
	return a.QueryOn(ctx, a.DB, sqlStr, params...)
}

// ExecScript runs a multi-statement script. The connector enables
// multiStatements for this purpose.
func (a *Adapter) ExecScript(ctx context.Context, script string) error {
	if a.DB == nil {
		return core.ErrNotConnected
	}
	return a.ExecScriptOn(ctx, a.DB, script)
}

// BeginSession takes a dedicated connection out of the pool and starts a
// transaction on it. The connection returns to the pool on Release.
func (a *Adapter) BeginSession(ctx context.Context) (*adapter.Session, error) {
	if a.DB == nil {
		return nil, core.ErrNotConnected
	}
	s := adapter.NewSession(core.KindMySQL, &txHandle{a: a}, a.Logger)
	if err := s.Begin(ctx); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

// buildMySQLConfig turns the adapter config into a driver config. A URL, when
// given, must be in the driver's DSN format.
func buildMySQLConfig(cfg adapter.Config) (*mysql.Config, error) {
	var mc *mysql.Config
	if cfg.URL != "" {
		parsed, err := mysql.ParseDSN(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
		}
		mc = parsed
	} else {
		mc = mysql.NewConfig()
		mc.User = orDefault(cfg.Username, DefaultUser)
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		port := cfg.Port
		if port == 0 {
			port = DefaultPort
		}
		mc.Addr = net.JoinHostPort(orDefault(cfg.Host, DefaultHost), strconv.Itoa(port))
		mc.DBName = orDefault(cfg.Database, DefaultDatabase)
	}

	mc.ParseTime = true
	mc.MultiStatements = true
	mc.Timeout = cfg.Timeout()
	if cfg.InsecureTLS {
		mc.TLSConfig = "skip-verify"
	}
	if len(cfg.Options) > 0 {
		if mc.Params == nil {
			mc.Params = make(map[string]string, len(cfg.Options))
		}
		for k, v := range cfg.Options {
			mc.Params[k] = v
		}
	}
	return mc, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// txHandle runs a transaction on a connection reserved from the pool.
type txHandle struct {
	a    *Adapter
	conn *sql.Conn
	tx   *sql.Tx
}

func (h *txHandle) Begin(ctx context.Context) error {
	conn, err := h.a.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	h.conn = conn
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	h.tx = tx
	return nil
}

func (h *txHandle) Query(ctx context.Context, sqlStr string, params ...any) (core.Result, error) {
	return h.a.QueryOn(ctx, h.tx, sqlStr, params...)
}

func (h *txHandle) Commit(context.Context) error { return h.tx.Commit() }

func (h *txHandle) Rollback(context.Context) error { return h.tx.Rollback() }

func (h *txHandle) Release() {
	if h.conn != nil {
		_ = h.conn.Close()
	}
}
