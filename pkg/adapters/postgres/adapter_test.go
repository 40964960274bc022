package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/freshpress/laundrypos/internal/testutil"
	"github.com/freshpress/laundrypos/pkg/adapter"
	"github.com/freshpress/laundrypos/pkg/core"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockAdapter(t *testing.T) (*Adapter, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewWithPool(mock, testutil.NewTestLogger(t)), mock
}

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "laundry_db",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=laundry_db sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode",
			config: adapter.Config{
				Host:     "prod.example.com",
				Port:     5432,
				Database: "laundry_db",
				Username: "admin",
				Options:  map[string]string{"sslmode": "verify-full"},
			},
			expected: "host=prod.example.com port=5432 dbname=laundry_db sslmode=verify-full user=admin",
		},
		{
			name: "insecure tls requires ssl",
			config: adapter.Config{
				Host:        "db.render.com",
				Database:    "laundry_db",
				InsecureTLS: true,
			},
			expected: "host=db.render.com port=5432 dbname=laundry_db sslmode=require user=postgres",
		},
		{
			name:     "defaults",
			config:   adapter.Config{},
			expected: "host=localhost port=5432 dbname=laundry_db sslmode=disable user=postgres",
		},
		{
			name: "empty option is quoted",
			config: adapter.Config{
				Database: "shop",
				Options:  map[string]string{"sslmode": ""},
			},
			expected: "host=localhost port=5432 dbname=shop sslmode='' user=postgres",
		},
		{
			name: "password with spaces is quoted",
			config: adapter.Config{
				Database: "laundry_db",
				Password: "it's secret",
			},
			expected: `host=localhost port=5432 dbname=laundry_db sslmode=disable user=postgres password='it\'s secret'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestBuildPoolConfig(t *testing.T) {
	t.Run("url wins over fields", func(t *testing.T) {
		cfg, err := buildPoolConfig(adapter.Config{
			URL:      "postgres://laundry:pw@db.internal:6543/shop",
			Host:     "ignored",
			MaxConns: 4,
		})
		require.NoError(t, err)
		assert.Equal(t, "db.internal", cfg.ConnConfig.Host)
		assert.Equal(t, uint16(6543), cfg.ConnConfig.Port)
		assert.Equal(t, "shop", cfg.ConnConfig.Database)
		assert.Equal(t, int32(4), cfg.MaxConns)
		assert.Equal(t, core.DefaultConnectTimeout, cfg.ConnConfig.ConnectTimeout)
	})

	t.Run("defaults pool size", func(t *testing.T) {
		cfg, err := buildPoolConfig(adapter.Config{Database: "laundry_db", ConnectTimeout: 2 * time.Second})
		require.NoError(t, err)
		assert.Equal(t, int32(core.DefaultMaxConns), cfg.MaxConns)
		assert.Equal(t, 2*time.Second, cfg.ConnConfig.ConnectTimeout)
	})

	t.Run("empty fields use defaults", func(t *testing.T) {
		cfg, err := buildPoolConfig(adapter.Config{Kind: core.KindPostgres, Port: 5432})
		require.NoError(t, err)
		assert.Equal(t, DefaultDatabase, cfg.ConnConfig.Database)
		assert.Equal(t, DefaultUser, cfg.ConnConfig.User)
		assert.Equal(t, DefaultHost, cfg.ConnConfig.Host)
		assert.Nil(t, cfg.ConnConfig.TLSConfig)
		assert.Empty(t, cfg.ConnConfig.Fallbacks)
	})

	t.Run("insecure tls", func(t *testing.T) {
		cfg, err := buildPoolConfig(adapter.Config{URL: "postgres://u:p@hosted.example.com/db", InsecureTLS: true})
		require.NoError(t, err)
		require.NotNil(t, cfg.ConnConfig.TLSConfig)
		assert.True(t, cfg.ConnConfig.TLSConfig.InsecureSkipVerify)
		assert.Empty(t, cfg.ConnConfig.Fallbacks)
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := buildPoolConfig(adapter.Config{URL: "postgres://%zz"})
		require.Error(t, err)
	})
}

func TestNew(t *testing.T) {
	adp := New(nil)

	assert.NotNil(t, adp, "New() should return non-nil adapter")
	assert.False(t, adp.IsConnected(), "should not be connected initially")
	assert.Equal(t, core.KindPostgres, adp.Kind())

	var _ adapter.Adapter = adp
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	_, err := adp.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, core.ErrNotConnected)
	assert.ErrorIs(t, adp.ExecScript(ctx, "SELECT 1"), core.ErrNotConnected)
	_, err = adp.BeginSession(ctx)
	assert.ErrorIs(t, err, core.ErrNotConnected)
	assert.NoError(t, adp.Close())
}

func TestAdapter_QueryRead(t *testing.T) {
	adp, mock := newMockAdapter(t)

	mock.ExpectQuery(`SELECT id, username FROM "users" WHERE (created_at)::date = CURRENT_DATE AND id > $1`).
		WithArgs(0).
		WillReturnRows(mock.NewRows([]string{"id", "username"}).
			AddRow(int32(1), "admin").
			AddRow(int32(2), "clerk"))

	res, err := adp.Query(context.Background(), "SELECT id, username FROM `users` WHERE DATE(created_at) = CURDATE() AND id > ?", 0)
	require.NoError(t, err)

	rs, ok := core.AsRowSet(res)
	require.True(t, ok)
	assert.Equal(t, []string{"id", "username"}, rs.Columns)
	require.Len(t, rs.Rows, 2)
	assert.Equal(t, core.Row{"id": int64(1), "username": "admin"}, rs.Rows[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_QueryInsertReturnsID(t *testing.T) {
	adp, mock := newMockAdapter(t)

	mock.ExpectQuery("INSERT INTO customers (name, phone) VALUES ($1, $2) RETURNING id").
		WithArgs("Ann", "0722").
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(int64(17)))

	res, err := adp.Query(context.Background(), "INSERT INTO customers (name, phone) VALUES (?, ?)", "Ann", "0722")
	require.NoError(t, err)

	ws, ok := core.AsWriteSummary(res)
	require.True(t, ok)
	require.NotNil(t, ws.InsertID)
	assert.Equal(t, int64(17), *ws.InsertID)
	assert.Equal(t, int64(1), ws.AffectedRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_QueryInsertIgnoreConflict(t *testing.T) {
	adp, mock := newMockAdapter(t)

	mock.ExpectQuery("INSERT INTO users (username, password) VALUES ($1, $2) ON CONFLICT DO NOTHING RETURNING id").
		WithArgs("admin", "x").
		WillReturnRows(mock.NewRows([]string{"id"}))

	res, err := adp.Query(context.Background(), "INSERT IGNORE INTO users (username, password) VALUES (?, ?)", "admin", "x")
	require.NoError(t, err)

	ws, ok := core.AsWriteSummary(res)
	require.True(t, ok)
	assert.Nil(t, ws.InsertID)
	assert.Equal(t, int64(0), ws.AffectedRows)
}

func TestAdapter_QueryUpdate(t *testing.T) {
	adp, mock := newMockAdapter(t)

	mock.ExpectExec("UPDATE sales SET payment_status = $1, payment_date = NOW() WHERE id = $2").
		WithArgs("paid", 9).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	res, err := adp.Query(context.Background(), "UPDATE sales SET payment_status = ?, payment_date = NOW() WHERE id = ?", "paid", 9)
	require.NoError(t, err)

	ws, ok := core.AsWriteSummary(res)
	require.True(t, ok)
	assert.Nil(t, ws.InsertID)
	assert.Equal(t, int64(1), ws.AffectedRows)
}

func TestAdapter_QueryError(t *testing.T) {
	adp, mock := newMockAdapter(t)

	driverErr := errors.New(`relation "salez" does not exist`)
	mock.ExpectQuery("SELECT * FROM salez").WillReturnError(driverErr)

	_, err := adp.Query(context.Background(), "SELECT * FROM salez")
	require.Error(t, err)

	var qe *core.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "SELECT * FROM salez", qe.SQL)
	assert.ErrorIs(t, err, driverErr)
}

func TestAdapter_QueryParamMismatch(t *testing.T) {
	adp, mock := newMockAdapter(t)

	_, err := adp.Query(context.Background(), "SELECT * FROM users WHERE id = ?")
	require.ErrorIs(t, err, core.ErrParamCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_ExecScript(t *testing.T) {
	adp, mock := newMockAdapter(t)

	script := "CREATE TABLE IF NOT EXISTS users (id SERIAL PRIMARY KEY);"
	mock.ExpectExec(script).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, adp.ExecScript(context.Background(), script))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_SessionCommit(t *testing.T) {
	adp, mock := newMockAdapter(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO sales (customer_id, total_amount) VALUES ($1, $2) RETURNING id").
		WithArgs(3, 450.0).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(int64(88)))
	mock.ExpectCommit()

	s, err := adp.BeginSession(ctx)
	require.NoError(t, err)
	defer s.Release()

	res, err := s.Query(ctx, "INSERT INTO sales (customer_id, total_amount) VALUES (?, ?)", 3, 450.0)
	require.NoError(t, err)
	ws, _ := core.AsWriteSummary(res)
	require.NotNil(t, ws.InsertID)
	assert.Equal(t, int64(88), *ws.InsertID)

	require.NoError(t, s.Commit(ctx))
	require.NoError(t, s.Rollback(ctx), "rollback after commit is a no-op")
	assert.Equal(t, adapter.StateCommitted, s.State())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_SessionReleaseRollsBack(t *testing.T) {
	adp, mock := newMockAdapter(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectRollback()

	s, err := adp.BeginSession(ctx)
	require.NoError(t, err)
	s.Release()
	s.Release()

	assert.Equal(t, adapter.StateReleased, s.State())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_BeginFailure(t *testing.T) {
	adp, mock := newMockAdapter(t)

	mock.ExpectBegin().WillReturnError(errors.New("too many clients"))

	_, err := adp.BeginSession(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many clients")
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, int64(5), normalizeValue(int32(5)))
	assert.Equal(t, "x", normalizeValue([]byte("x")))
	assert.Nil(t, normalizeValue(nil))
}
