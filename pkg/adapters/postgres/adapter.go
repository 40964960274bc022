package postgres

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/freshpress/laundrypos/pkg/adapter"
	"github.com/freshpress/laundrypos/pkg/core"
	"github.com/freshpress/laundrypos/pkg/dialect"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connection defaults used when the config leaves a field empty.
const (
	DefaultHost     = "localhost"
	DefaultPort     = 5432
	DefaultUser     = "postgres"
	DefaultDatabase = "laundry_db"
)

// querier is satisfied by the pool and by an open pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Pool is the subset of *pgxpool.Pool the adapter uses.
// pgxmock.PgxPoolIface satisfies it as well.
type Pool interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	pool       Pool
	cfg        core.AdapterConfig
	logger     *slog.Logger
	translator dialect.Translator
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tr, _ := dialect.For(core.KindPostgres)
	return &Adapter{logger: logger, translator: tr}
}

// NewWithPool creates an adapter over an existing pool.
func NewWithPool(pool Pool, logger *slog.Logger) *Adapter {
	a := New(logger)
	a.pool = pool
	a.cfg.Kind = core.KindPostgres
	return a
}

// Kind returns core.KindPostgres.
func (a *Adapter) Kind() core.Kind { return core.KindPostgres }

// IsConnected returns true if the pool is established.
func (a *Adapter) IsConnected() bool { return a.pool != nil }

// Connect establishes a connection pool to PostgreSQL and verifies it with a ping.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	poolCfg, err := buildPoolConfig(cfg)
	if err != nil {
		return err
	}

	a.logger.Debug("connecting to postgres",
		slog.String("target", cfg.Target()),
		slog.Int("max_conns", int(poolCfg.MaxConns)))

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("failed to open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.pool = pool
	a.cfg = cfg
	return nil
}

// Close closes the pool.
func (a *Adapter) Close() error {
	if a.pool != nil {
		a.logger.Debug("closing database connection")
		a.pool.Close()
		a.pool = nil
	}
	return nil
}

// Query runs canonical SQL on the pool.
func (a *Adapter) Query(ctx context.Context, sql string, params ...any) (core.Result, error) {
	if a.pool == nil {
		return nil, core.ErrNotConnected
	}
	return a.queryOn(ctx, a.pool, sql, params)
}

// ExecScript runs a multi-statement script. Without arguments pgx uses the
// simple protocol, which accepts several statements in one call.
func (a *Adapter) ExecScript(ctx context.Context, script string) error {
	if a.pool == nil {
		return core.ErrNotConnected
	}
	if _, err := a.pool.Exec(ctx, script); err != nil {
		return fmt.Errorf("failed to execute script: %w", err)
	}
	return nil
}

// BeginSession opens a transaction on a pooled connection. pgx returns the
// connection to the pool when the transaction ends.
func (a *Adapter) BeginSession(ctx context.Context) (*adapter.Session, error) {
	if a.pool == nil {
		return nil, core.ErrNotConnected
	}
	s := adapter.NewSession(core.KindPostgres, &txHandle{a: a}, a.logger)
	if err := s.Begin(ctx); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

func (a *Adapter) queryOn(ctx context.Context, q querier, sql string, params []any) (core.Result, error) {
	translated, err := adapter.Prepare(a.translator, sql, params)
	if err != nil {
		a.logger.Error("query rejected", "error", err)
		return nil, err
	}

	switch {
	case core.IsRead(sql):
		rows, err := q.Query(ctx, translated, params...)
		if err != nil {
			return nil, adapter.LogQueryError(a.logger, core.KindPostgres, translated, err)
		}
		rs, _, err := collectRows(rows)
		if err != nil {
			return nil, adapter.LogQueryError(a.logger, core.KindPostgres, translated, err)
		}
		return rs, nil

	case dialect.HasKeyword(translated, "RETURNING"):
		rows, err := q.Query(ctx, translated, params...)
		if err != nil {
			return nil, adapter.LogQueryError(a.logger, core.KindPostgres, translated, err)
		}
		rs, tag, err := collectRows(rows)
		if err != nil {
			return nil, adapter.LogQueryError(a.logger, core.KindPostgres, translated, err)
		}
		ws := &core.WriteSummary{AffectedRows: max(tag.RowsAffected(), int64(rs.Len()))}
		if core.IsInsert(sql) && rs.Len() > 0 {
			if id, ok := adapter.Int64(rs.First()["id"]); ok {
				ws.InsertID = &id
			}
		}
		return ws, nil

	default:
		tag, err := q.Exec(ctx, translated, params...)
		if err != nil {
			return nil, adapter.LogQueryError(a.logger, core.KindPostgres, translated, err)
		}
		return &core.WriteSummary{AffectedRows: tag.RowsAffected()}, nil
	}
}

// collectRows drains rows into a RowSet and returns the command tag.
func collectRows(rows pgx.Rows) (*core.RowSet, pgconn.CommandTag, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, fd := range fields {
		cols[i] = fd.Name
	}

	rs := &core.RowSet{Columns: cols, Rows: []core.Row{}}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, pgconn.CommandTag{}, fmt.Errorf("failed to read row: %w", err)
		}
		row := make(core.Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		rs.Rows = append(rs.Rows, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, pgconn.CommandTag{}, err
	}
	return rs, rows.CommandTag(), nil
}

// normalizeValue maps pgx decoded values onto the plain Go types the other
// backends produce.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case pgtype.Numeric:
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case int32:
		return int64(n)
	case int16:
		return int64(n)
	default:
		return adapter.NormalizeValue(v)
	}
}

// buildPoolConfig turns the adapter config into a pgxpool config. An explicit
// URL wins over the discrete connection fields.
func buildPoolConfig(cfg adapter.Config) (*pgxpool.Config, error) {
	connString := cfg.URL
	if connString == "" {
		connString = buildPostgresDSN(cfg)
	}

	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres connection string: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.PoolSize()) //nolint:gosec // pool size is small and validated
	poolCfg.ConnConfig.ConnectTimeout = cfg.Timeout()

	if cfg.InsecureTLS {
		poolCfg.ConnConfig.TLSConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // hosted providers present certificates we cannot verify
			ServerName:         poolCfg.ConnConfig.Host,
		}
		poolCfg.ConnConfig.Fallbacks = nil
	}
	return poolCfg, nil
}

// buildPostgresDSN constructs a PostgreSQL key=value connection string.
// Empty fields fall back to the package defaults.
func buildPostgresDSN(cfg adapter.Config) string {
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}

	sslmode := "disable"
	if cfg.InsecureTLS {
		sslmode = "require"
	}
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	parts := []string{
		"host=" + quoteDSNValue(orDefault(cfg.Host, DefaultHost)),
		"port=" + strconv.Itoa(port),
		"dbname=" + quoteDSNValue(orDefault(cfg.Database, DefaultDatabase)),
		"sslmode=" + quoteDSNValue(sslmode),
		"user=" + quoteDSNValue(orDefault(cfg.Username, DefaultUser)),
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+quoteDSNValue(cfg.Password))
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue quotes a key=value DSN value when it is empty or contains
// spaces or quotes. An unquoted empty value would swallow the next pair.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// txHandle adapts a pgx transaction to adapter.Tx.
type txHandle struct {
	a  *Adapter
	tx pgx.Tx
}

func (h *txHandle) Begin(ctx context.Context) error {
	tx, err := h.a.pool.Begin(ctx)
	if err != nil {
		return err
	}
	h.tx = tx
	return nil
}

func (h *txHandle) Query(ctx context.Context, sql string, params ...any) (core.Result, error) {
	return h.a.queryOn(ctx, h.tx, sql, params)
}

func (h *txHandle) Commit(ctx context.Context) error { return h.tx.Commit(ctx) }

func (h *txHandle) Rollback(ctx context.Context) error { return h.tx.Rollback(ctx) }

// Release is a no-op: the connection went back to the pool at commit or rollback.
func (h *txHandle) Release() {}
