package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/freshpress/laundrypos/pkg/core"
	"github.com/freshpress/laundrypos/pkg/dialect"
)

// DBTX is the subset of database/sql satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, ExecScript and query execution.
type BaseSQLAdapter struct {
	DB         *sql.DB
	Cfg        core.AdapterConfig
	Logger     *slog.Logger
	Translator dialect.Translator
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// ExecScriptOn runs a multi-statement script on q without translation.
func (b *BaseSQLAdapter) ExecScriptOn(ctx context.Context, q DBTX, script string) error {
	if q == nil {
		return core.ErrNotConnected
	}
	if _, err := q.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("failed to execute script: %w", err)
	}
	return nil
}

// QueryOn translates and runs canonical SQL on q and builds the uniform result.
func (b *BaseSQLAdapter) QueryOn(ctx context.Context, q DBTX, sqlStr string, params ...any) (core.Result, error) {
	if q == nil {
		return nil, core.ErrNotConnected
	}
	translated, err := Prepare(b.Translator, sqlStr, params)
	if err != nil {
		b.logger().Error("query rejected", "error", err)
		return nil, err
	}

	if core.IsRead(sqlStr) {
		rows, err := q.QueryContext(ctx, translated, params...)
		if err != nil {
			return nil, b.fail(translated, err)
		}
		defer func() { _ = rows.Close() }()
		rs, err := ScanRows(rows)
		if err != nil {
			return nil, b.fail(translated, err)
		}
		return rs, nil
	}

	res, err := q.ExecContext(ctx, translated, params...)
	if err != nil {
		return nil, b.fail(translated, err)
	}
	ws := &core.WriteSummary{}
	if n, err := res.RowsAffected(); err == nil {
		ws.AffectedRows = n
	}
	if core.IsInsert(sqlStr) && ws.AffectedRows > 0 {
		if id, err := res.LastInsertId(); err == nil {
			ws.InsertID = &id
		}
	}
	return ws, nil
}

func (b *BaseSQLAdapter) fail(translated string, err error) error {
	kind := core.KindUnknown
	if b.Translator != nil {
		kind = b.Translator.Kind()
	}
	return LogQueryError(b.logger(), kind, translated, err)
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// LogQueryError wraps a driver failure in a *core.QueryError and logs it.
func LogQueryError(logger *slog.Logger, kind core.Kind, translated string, err error) error {
	qe := &core.QueryError{Kind: kind, SQL: translated, Err: err}
	logger.Error("query failed", "backend", kind.String(), "sql", translated, "error", err)
	return qe
}

// Prepare translates canonical SQL and checks that the number of '?'
// placeholders matches the number of parameters.
func Prepare(t dialect.Translator, sqlStr string, params []any) (string, error) {
	if t == nil {
		return "", fmt.Errorf("%w: no translator bound", core.ErrUnknownKind)
	}
	if n := dialect.CountPlaceholders(sqlStr); n != len(params) {
		return "", core.ParamCountError(n, len(params))
	}
	return t.Translate(sqlStr)
}

// ScanRows reads every row into a RowSet, preserving column order.
func ScanRows(rows *sql.Rows) (*core.RowSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	rs := &core.RowSet{Columns: cols, Rows: []core.Row{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(core.Row, len(cols))
		for i, col := range cols {
			row[col] = NormalizeValue(values[i])
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return rs, nil
}

// NormalizeValue converts driver byte slices to strings so rows compare
// equal across backends.
func NormalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// Int64 converts a numeric column value to int64.
func Int64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
