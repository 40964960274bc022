package adapter

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/freshpress/laundrypos/internal/testutil"
	"github.com/freshpress/laundrypos/pkg/core"
	"github.com/freshpress/laundrypos/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockBase(t *testing.T, kind core.Kind) (*BaseSQLAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tr, err := dialect.For(kind)
	require.NoError(t, err)
	return &BaseSQLAdapter{DB: db, Logger: testutil.NewTestLogger(t), Translator: tr}, mock
}

func TestBaseSQLAdapter_Close(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		expectErr bool
	}{
		{
			name:      "close with nil DB",
			setupDB:   false,
			expectErr: false,
		},
		{
			name:      "close with open DB",
			setupDB:   true,
			expectErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}

			err := base.Close()
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBaseSQLAdapter_QueryOn_NotConnected(t *testing.T) {
	base := &BaseSQLAdapter{}
	_, err := base.QueryOn(context.Background(), nil, "SELECT 1")
	require.ErrorIs(t, err, core.ErrNotConnected)
	assert.False(t, base.IsConnected())
}

func TestBaseSQLAdapter_QueryOn_Read(t *testing.T) {
	base, mock := newMockBase(t, core.KindMySQL)

	mock.ExpectQuery("SELECT id, name, phone FROM customers WHERE name LIKE ?").
		WithArgs("%ann%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "phone"}).
			AddRow(int64(2), "Ann", []byte("0722")).
			AddRow(int64(5), "Joanna", nil))

	res, err := base.QueryOn(context.Background(), base.DB, "SELECT id, name, phone FROM customers WHERE name LIKE ?", "%ann%")
	require.NoError(t, err)

	rs, ok := core.AsRowSet(res)
	require.True(t, ok, "SELECT must produce a row set")
	assert.Equal(t, []string{"id", "name", "phone"}, rs.Columns)
	require.Len(t, rs.Rows, 2)
	assert.Equal(t, core.Row{"id": int64(2), "name": "Ann", "phone": "0722"}, rs.Rows[0])
	assert.Nil(t, rs.Rows[1]["phone"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_QueryOn_EmptyRead(t *testing.T) {
	base, mock := newMockBase(t, core.KindMySQL)

	mock.ExpectQuery("SELECT * FROM sales WHERE id = ?").
		WithArgs(999).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	res, err := base.QueryOn(context.Background(), base.DB, "SELECT * FROM sales WHERE id = ?", 999)
	require.NoError(t, err)

	rs, ok := core.AsRowSet(res)
	require.True(t, ok)
	assert.NotNil(t, rs.Rows)
	assert.Equal(t, 0, rs.Len())
}

func TestBaseSQLAdapter_QueryOn_Write(t *testing.T) {
	tests := []struct {
		name         string
		sql          string
		args         []any
		lastID       int64
		affected     int64
		wantInsertID *int64
	}{
		{
			name:         "insert",
			sql:          "INSERT INTO customers (name, phone) VALUES (?, ?)",
			args:         []any{"Ann", "0722"},
			lastID:       42,
			affected:     1,
			wantInsertID: ptr(int64(42)),
		},
		{
			name:     "insert ignored duplicate",
			sql:      "INSERT IGNORE INTO customers (name, phone) VALUES (?, ?)",
			args:     []any{"Ann", "0722"},
			lastID:   0,
			affected: 0,
		},
		{
			name:     "update",
			sql:      "UPDATE sales SET payment_status = ? WHERE customer_id = ?",
			args:     []any{"paid", 3},
			affected: 3,
		},
		{
			name:     "delete",
			sql:      "DELETE FROM services WHERE id = ?",
			args:     []any{7},
			affected: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, mock := newMockBase(t, core.KindMySQL)

			driverArgs := make([]driver.Value, 0, len(tt.args))
			for _, a := range tt.args {
				driverArgs = append(driverArgs, a)
			}
			mock.ExpectExec(tt.sql).
				WithArgs(driverArgs...).
				WillReturnResult(sqlmock.NewResult(tt.lastID, tt.affected))

			res, err := base.QueryOn(context.Background(), base.DB, tt.sql, tt.args...)
			require.NoError(t, err)

			ws, ok := core.AsWriteSummary(res)
			require.True(t, ok, "non-SELECT must produce a write summary")
			assert.Equal(t, tt.affected, ws.AffectedRows)
			assert.Equal(t, tt.wantInsertID, ws.InsertID)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBaseSQLAdapter_QueryOn_ParamMismatch(t *testing.T) {
	base, mock := newMockBase(t, core.KindMySQL)

	_, err := base.QueryOn(context.Background(), base.DB, "SELECT * FROM users WHERE username = ? AND is_active = ?", "admin")
	require.ErrorIs(t, err, core.ErrParamCount)
	assert.NoError(t, mock.ExpectationsWereMet(), "nothing may reach the driver")
}

func TestBaseSQLAdapter_QueryOn_TranslatesBeforeDispatch(t *testing.T) {
	base, mock := newMockBase(t, core.KindSQLite)

	mock.ExpectQuery("SELECT COUNT(*) AS n FROM sales WHERE date(created_at) = date('now')").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(4)))

	res, err := base.QueryOn(context.Background(), base.DB, "SELECT COUNT(*) AS n FROM sales WHERE DATE(created_at) = CURDATE()")
	require.NoError(t, err)
	rs, _ := core.AsRowSet(res)
	assert.Equal(t, int64(4), rs.First()["n"])
}

func TestBaseSQLAdapter_QueryOn_DriverError(t *testing.T) {
	base, mock := newMockBase(t, core.KindSQLite)

	translated := "UPDATE sales SET payment_date = datetime('now') WHERE id = ?"
	mock.ExpectExec(translated).WithArgs(1).WillReturnError(assert.AnError)

	_, err := base.QueryOn(context.Background(), base.DB, "UPDATE sales SET payment_date = NOW() WHERE id = ?", 1)
	require.Error(t, err)

	var qe *core.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, translated, qe.SQL)
	assert.Equal(t, core.KindSQLite, qe.Kind)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), translated)
}

func TestBaseSQLAdapter_QueryOn_TranslateError(t *testing.T) {
	base, mock := newMockBase(t, core.KindSQLite)

	_, err := base.QueryOn(context.Background(), base.DB, "SELECT MONTH(created_at FROM sales")
	var te *core.TranslateError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "SELECT MONTH(created_at FROM sales", te.SQL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_ExecScriptOn(t *testing.T) {
	base, mock := newMockBase(t, core.KindSQLite)

	script := "CREATE TABLE IF NOT EXISTS a (id INTEGER);\nCREATE TABLE IF NOT EXISTS b (id INTEGER);"
	mock.ExpectExec(script).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, base.ExecScriptOn(context.Background(), base.DB, script))

	mock.ExpectExec("BROKEN").WillReturnError(assert.AnError)
	err := base.ExecScriptOn(context.Background(), base.DB, "BROKEN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute script")
}

func TestInt64(t *testing.T) {
	tests := []struct {
		in     any
		want   int64
		wantOK bool
	}{
		{int64(9), 9, true},
		{int32(9), 9, true},
		{int(9), 9, true},
		{uint64(9), 9, true},
		{float64(9), 9, true},
		{"9", 9, true},
		{"nine", 0, false},
		{"12abc", 0, false},
		{" 12", 0, false},
		{"-3", -3, true},
		{nil, 0, false},
	}

	for _, tt := range tests {
		got, ok := Int64(tt.in)
		assert.Equal(t, tt.wantOK, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "abc", NormalizeValue([]byte("abc")))
	assert.Equal(t, int64(1), NormalizeValue(int64(1)))
	assert.Nil(t, NormalizeValue(nil))
}

func ptr[T any](v T) *T { return &v }
