package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/freshpress/laundrypos/pkg/core"
	"github.com/jedib0t/go-pretty/v6/table"
)

func renderResult(w io.Writer, res core.Result, format string) error {
	switch r := res.(type) {
	case *core.RowSet:
		return renderRows(w, r, format)
	case *core.WriteSummary:
		return renderWrite(w, r, format)
	default:
		return fmt.Errorf("unexpected result type %T", res)
	}
}

func renderRows(w io.Writer, rs *core.RowSet, format string) error {
	switch format {
	case "json":
		return renderJSON(w, rows(rs))
	case "csv":
		t := newTable(w, rs)
		t.RenderCSV()
		return nil
	case "md":
		if rs.Len() == 0 {
			_, _ = fmt.Fprintln(w, "(0 rows)")
			return nil
		}
		t := newTable(w, rs)
		t.RenderMarkdown()
		return nil
	default:
		if rs.Len() == 0 {
			_, _ = fmt.Fprintln(w, "(0 rows)")
			return nil
		}
		t := newTable(w, rs)
		t.SetStyle(table.StyleLight)
		t.Render()
		_, _ = fmt.Fprintf(w, "(%d rows)\n", rs.Len())
		return nil
	}
}

func newTable(w io.Writer, rs *core.RowSet) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	headerRow := make(table.Row, len(rs.Columns))
	for i, col := range rs.Columns {
		headerRow[i] = col
	}
	t.AppendHeader(headerRow)

	for _, r := range rs.Rows {
		row := make(table.Row, len(rs.Columns))
		for i, col := range rs.Columns {
			row[i] = formatValue(r[col])
		}
		t.AppendRow(row)
	}
	return t
}

// rows never returns nil so an empty result encodes as [].
func rows(rs *core.RowSet) []core.Row {
	if rs.Rows == nil {
		return []core.Row{}
	}
	return rs.Rows
}

func renderWrite(w io.Writer, ws *core.WriteSummary, format string) error {
	if format == "json" {
		return renderJSON(w, ws)
	}
	noun := "rows"
	if ws.AffectedRows == 1 {
		noun = "row"
	}
	if ws.InsertID != nil {
		_, _ = fmt.Fprintf(w, "%d %s affected, insert id %d\n", ws.AffectedRows, noun, *ws.InsertID)
		return nil
	}
	_, _ = fmt.Fprintf(w, "%d %s affected\n", ws.AffectedRows, noun)
	return nil
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Catalog statements are canonical SQL; each runs through the backend's
// translator like any other query.
var (
	tablesSQL = map[core.Kind]string{
		core.KindPostgres: `SELECT table_name AS name, table_type AS type
FROM information_schema.tables
WHERE table_schema = 'public'
ORDER BY table_name`,
		core.KindMySQL: `SELECT table_name AS name, table_type AS type
FROM information_schema.tables
WHERE table_schema = DATABASE()
ORDER BY table_name`,
		core.KindSQLite: `SELECT name, type
FROM sqlite_master
WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
ORDER BY name`,
	}

	columnsSQL = map[core.Kind]string{
		core.KindPostgres: `SELECT column_name AS name, data_type AS type, is_nullable AS nullable, column_default AS default_value
FROM information_schema.columns
WHERE table_schema = 'public' AND table_name = ?
ORDER BY ordinal_position`,
		core.KindMySQL: `SELECT column_name AS name, column_type AS type, is_nullable AS nullable, column_default AS default_value
FROM information_schema.columns
WHERE table_schema = DATABASE() AND table_name = ?
ORDER BY ordinal_position`,
		core.KindSQLite: `SELECT name, type, CASE WHEN "notnull" = 1 THEN 'NO' ELSE 'YES' END AS nullable, dflt_value AS default_value
FROM pragma_table_info(?)
ORDER BY cid`,
	}
)

func listTables(ctx context.Context, w io.Writer, q querier, kind core.Kind, format string) error {
	stmt, ok := tablesSQL[kind]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownKind, kind)
	}
	res, err := q.Query(ctx, stmt)
	if err != nil {
		return err
	}
	return renderResult(w, res, format)
}

func showSchema(ctx context.Context, w io.Writer, q querier, kind core.Kind, tableName, format string) error {
	stmt, ok := columnsSQL[kind]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownKind, kind)
	}
	res, err := q.Query(ctx, stmt, tableName)
	if err != nil {
		return err
	}
	if rs, ok := core.AsRowSet(res); ok && rs.Len() == 0 {
		return fmt.Errorf("table or view '%s' not found", tableName)
	}
	return renderResult(w, res, format)
}

// tableNames returns the names listed by the catalog, for completion.
func tableNames(ctx context.Context, q querier, kind core.Kind) []string {
	stmt, ok := tablesSQL[kind]
	if !ok {
		return nil
	}
	res, err := q.Query(ctx, stmt)
	if err != nil {
		return nil
	}
	rs, ok := core.AsRowSet(res)
	if !ok {
		return nil
	}
	names := make([]string, 0, rs.Len())
	for _, r := range rs.Rows {
		if name, ok := r["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names
}
