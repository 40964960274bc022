package dialect

import (
	"testing"

	"github.com/freshpress/laundrypos/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	for _, k := range core.Kinds() {
		tr, err := For(k)
		require.NoError(t, err)
		assert.Equal(t, k, tr.Kind())
	}

	_, err := For(core.KindUnknown)
	require.ErrorIs(t, err, core.ErrUnknownKind)
	_, err = For(core.Kind(9))
	require.ErrorIs(t, err, core.ErrUnknownKind)
}

func TestTranslate_MySQLIdentity(t *testing.T) {
	inputs := []string{
		"SELECT * FROM `users` WHERE `id` = ?",
		"INSERT IGNORE INTO users (username) VALUES (?)",
		"SELECT MONTH(DATE_SUB(CURDATE(), INTERVAL 7 DAY))",
		"SELECT DATE(created_at FROM broken",
	}
	for _, in := range inputs {
		out, err := Translate(core.KindMySQL, in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestTranslate_Postgres(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "backticks and placeholder",
			in:   "SELECT * FROM `users` WHERE `id` = ?",
			want: `SELECT * FROM "users" WHERE "id" = $1`,
		},
		{
			name: "date and curdate",
			in:   "SELECT COUNT(*) FROM sales WHERE DATE(created_at) = CURDATE()",
			want: "SELECT COUNT(*) FROM sales WHERE (created_at)::date = CURRENT_DATE",
		},
		{
			name: "date_sub of curdate",
			in:   "SELECT * FROM sales WHERE created_at >= DATE_SUB(CURDATE(), INTERVAL 7 DAY)",
			want: "SELECT * FROM sales WHERE created_at >= CURRENT_DATE - INTERVAL '7 days'",
		},
		{
			name: "month of date_sub",
			in:   "SELECT MONTH(DATE_SUB(CURDATE(), INTERVAL 30 DAY))",
			want: "SELECT EXTRACT(MONTH FROM CURRENT_DATE - INTERVAL '30 days')",
		},
		{
			name: "year of date",
			in:   "SELECT YEAR(DATE(created_at)) FROM sales",
			want: "SELECT EXTRACT(YEAR FROM (created_at)::date) FROM sales",
		},
		{
			name: "week",
			in:   "SELECT WEEK(created_at) FROM sales",
			want: "SELECT EXTRACT(WEEK FROM created_at) FROM sales",
		},
		{
			name: "nested same function",
			in:   "SELECT DATE(DATE(created_at))",
			want: "SELECT ((created_at)::date)::date",
		},
		{
			name: "whitespace before paren and lowercase",
			in:   "SELECT month (created_at) FROM sales WHERE date(created_at) = curdate()",
			want: "SELECT EXTRACT(MONTH FROM created_at) FROM sales WHERE (created_at)::date = CURRENT_DATE",
		},
		{
			name: "column named like a function",
			in:   "SELECT date, `month` FROM t",
			want: `SELECT date, "month" FROM t`,
		},
		{
			name: "insert gets returning id",
			in:   "INSERT INTO customers (name, phone) VALUES (?, ?)",
			want: "INSERT INTO customers (name, phone) VALUES ($1, $2) RETURNING id",
		},
		{
			name: "insert with trailing line comment",
			in:   "INSERT INTO customers (name, phone) VALUES (?, ?) -- walk-in",
			want: "INSERT INTO customers (name, phone) VALUES ($1, $2) RETURNING id",
		},
		{
			name: "insert with trailing block comment",
			in:   "INSERT IGNORE INTO users (username) VALUES (?); /* seed */\n",
			want: "INSERT INTO users (username) VALUES ($1) ON CONFLICT DO NOTHING RETURNING id",
		},
		{
			name: "insert ending in a literal",
			in:   "INSERT INTO services (name) VALUES ('Dry -- clean')",
			want: "INSERT INTO services (name) VALUES ('Dry -- clean') RETURNING id",
		},
		{
			name: "insert keeps existing returning",
			in:   "INSERT INTO customers (name) VALUES (?) RETURNING name",
			want: "INSERT INTO customers (name) VALUES ($1) RETURNING name",
		},
		{
			name: "insert ignore",
			in:   "INSERT IGNORE INTO users (username) VALUES (?);",
			want: "INSERT INTO users (username) VALUES ($1) ON CONFLICT DO NOTHING RETURNING id",
		},
		{
			name: "update with now",
			in:   "UPDATE sales SET payment_status = ?, payment_date = NOW() WHERE id = ?",
			want: "UPDATE sales SET payment_status = $1, payment_date = NOW() WHERE id = $2",
		},
		{
			name: "literals are untouched",
			in:   "SELECT '?' AS q, 'DATE(x)', `a``b` FROM t WHERE a = ?",
			want: `SELECT '?' AS q, 'DATE(x)', "a` + "`" + `b" FROM t WHERE a = $1`,
		},
		{
			name: "comments are untouched",
			in:   "SELECT a -- is it ?\nFROM t WHERE b = ? /* CURDATE() */",
			want: "SELECT a -- is it ?\nFROM t WHERE b = $1 /* CURDATE() */",
		},
		{
			name: "date_add generic",
			in:   "SELECT DATE_ADD(created_at, INTERVAL 1 MONTH) FROM sales",
			want: "SELECT (created_at) + INTERVAL '1 months' FROM sales",
		},
		{
			name: "parameterized interval",
			in:   "SELECT * FROM sales WHERE created_at >= DATE_SUB(CURDATE(), INTERVAL ? DAY) AND staff_id = ?",
			want: "SELECT * FROM sales WHERE created_at >= CURRENT_DATE - ($1 * INTERVAL '1 day') AND staff_id = $2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Translate(core.KindPostgres, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslate_SQLite(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "date and curdate",
			in:   "SELECT * FROM sales WHERE DATE(created_at) = CURDATE()",
			want: "SELECT * FROM sales WHERE date(created_at) = date('now')",
		},
		{
			name: "now",
			in:   "UPDATE sales SET payment_date = NOW() WHERE id = ?",
			want: "UPDATE sales SET payment_date = datetime('now') WHERE id = ?",
		},
		{
			name: "date_sub of curdate",
			in:   "SELECT * FROM sales WHERE created_at >= DATE_SUB(CURDATE(), INTERVAL 7 DAY)",
			want: "SELECT * FROM sales WHERE created_at >= date('now','-7 days')",
		},
		{
			name: "date parts",
			in:   "SELECT MONTH(created_at), YEAR(created_at), WEEK(created_at) FROM sales",
			want: "SELECT CAST(strftime('%m', created_at) AS INTEGER), CAST(strftime('%Y', created_at) AS INTEGER), CAST(strftime('%W', created_at) AS INTEGER) FROM sales",
		},
		{
			name: "month of date_sub",
			in:   "SELECT MONTH(DATE_SUB(CURDATE(), INTERVAL 30 DAY))",
			want: "SELECT CAST(strftime('%m', date('now','-30 days')) AS INTEGER)",
		},
		{
			name: "three levels",
			in:   "SELECT YEAR(DATE(DATE_SUB(CURDATE(), INTERVAL 1 YEAR)))",
			want: "SELECT CAST(strftime('%Y', date(date('now','-1 years'))) AS INTEGER)",
		},
		{
			name: "insert ignore",
			in:   "INSERT IGNORE INTO users (username) VALUES (?)",
			want: "INSERT OR IGNORE INTO users (username) VALUES (?)",
		},
		{
			name: "insert unchanged",
			in:   "INSERT INTO customers (name) VALUES (?)",
			want: "INSERT INTO customers (name) VALUES (?)",
		},
		{
			name: "weeks become days",
			in:   "SELECT DATE_SUB(created_at, INTERVAL 2 WEEK) FROM sales",
			want: "SELECT datetime(created_at, '-14 days') FROM sales",
		},
		{
			name: "parameterized interval",
			in:   "SELECT * FROM sales WHERE created_at >= DATE_SUB(CURDATE(), INTERVAL ? DAY)",
			want: "SELECT * FROM sales WHERE created_at >= date('now', '-' || ? || ' days')",
		},
		{
			name: "date_add of curdate",
			in:   "SELECT DATE_ADD(CURDATE(), INTERVAL 3 DAY)",
			want: "SELECT date('now','+3 days')",
		},
		{
			name: "string literal untouched",
			in:   "SELECT 'NOW()' FROM t",
			want: "SELECT 'NOW()' FROM t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Translate(core.KindSQLite, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		kind       core.Kind
		in         string
		wantOffset int
		wantMsg    string
	}{
		{"unbalanced paren", core.KindPostgres, "SELECT DATE(created_at FROM t", 11, "unbalanced parenthesis"},
		{"stray close", core.KindSQLite, "SELECT 1)", 8, "unexpected closing parenthesis"},
		{"unterminated string", core.KindPostgres, "SELECT 'abc FROM t", 7, "unterminated"},
		{"unsupported interval", core.KindSQLite, "SELECT DATE_SUB(CURDATE(), INTERVAL 1 HOUR)", 7, "unsupported interval"},
		{"curdate with argument", core.KindPostgres, "SELECT CURDATE(1)", 7, "CURDATE takes no arguments"},
		{"date without argument", core.KindPostgres, "SELECT DATE(  )", 7, "DATE expects 1 argument, got 0"},
		{"month with two arguments", core.KindSQLite, "SELECT MONTH(a, b)", 7, "MONTH expects 1 argument, got 2"},
		{"date_sub without arguments", core.KindPostgres, "SELECT DATE_SUB()", 7, "expected 2 arguments, got 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Translate(tt.kind, tt.in)
			require.Error(t, err)

			var te *core.TranslateError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.in, te.SQL)
			assert.Equal(t, tt.kind, te.Kind)
			assert.Equal(t, tt.wantOffset, te.Offset)
			assert.Contains(t, te.Msg, tt.wantMsg)
		})
	}
}

func TestTranslate_Deterministic(t *testing.T) {
	in := "SELECT MONTH(DATE_SUB(CURDATE(), INTERVAL 7 DAY)) FROM `sales` WHERE id = ?"
	for _, k := range core.Kinds() {
		first, err := Translate(k, in)
		require.NoError(t, err)
		second, err := Translate(k, in)
		require.NoError(t, err)
		assert.Equal(t, first, second, k.String())
	}
}

func TestCountPlaceholders(t *testing.T) {
	tests := []struct {
		sql  string
		want int
	}{
		{"SELECT 1", 0},
		{"SELECT * FROM t WHERE a = ? AND b = ?", 2},
		{"SELECT '?' FROM t WHERE a = ?", 1},
		{"SELECT `?` FROM t -- ?\nWHERE a = ?", 1},
		{"INSERT INTO t VALUES (?, ?, ?)", 3},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, CountPlaceholders(tt.sql))
		})
	}
}

func TestTrimStatementEnd(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1;  \n", "SELECT 1"},
		{"SELECT 1 -- done", "SELECT 1"},
		{"SELECT 1 /* a */ ; -- b\n", "SELECT 1"},
		{"SELECT ';'", "SELECT ';'"},
		{"SELECT 1 -- first\n, 2", "SELECT 1 -- first\n, 2"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, trimStatementEnd(tt.in))
		})
	}
}

func TestSplitArgs(t *testing.T) {
	args, err := splitArgs("CURDATE(), INTERVAL 7 DAY")
	require.NoError(t, err)
	assert.Equal(t, []string{"CURDATE()", "INTERVAL 7 DAY"}, args)

	args, err = splitArgs("COALESCE(a, b), 'x,y'")
	require.NoError(t, err)
	assert.Equal(t, []string{"COALESCE(a, b)", "'x,y'"}, args)
}
