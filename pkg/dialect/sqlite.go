package dialect

import (
	"fmt"
	"strings"

	"github.com/freshpress/laundrypos/pkg/core"
)

var sqliteTranslator Translator = &sqlitePipeline{}

type sqlitePipeline struct{}

var sqliteRules = &pipeline{
	kind: core.KindSQLite,
	rules: append(dateArithRules(renderSQLiteDateArith),
		replaceCall("CURDATE", "date('now')"),
		replaceCall("NOW", "datetime('now')"),
		rule{name: "DATE", apply: lowerDateCalls},
		unaryCall("MONTH", strftimeInt("%m")),
		unaryCall("YEAR", strftimeInt("%Y")),
		unaryCall("WEEK", strftimeInt("%W")),
	),
}

func (*sqlitePipeline) Kind() core.Kind { return core.KindSQLite }

func (*sqlitePipeline) Translate(sql string) (string, error) {
	stmt, _ := stripInsertIgnore(sql, "INSERT OR IGNORE INTO")
	return sqliteRules.Translate(stmt)
}

// lowerDateCalls rewrites DATE(x) to SQLite's date(x). Calls already
// carrying modifiers, as produced by the DATE_SUB rewrite, pass through.
func lowerDateCalls(s string) (string, error) {
	return rewriteCalls(s, "DATE", func(args string, offset int) (string, error) {
		if strings.TrimSpace(args) == "" {
			return "", errAt(offset, "DATE expects an argument")
		}
		return "date(" + args + ")", nil
	})
}

func strftimeInt(format string) func(string) string {
	return func(arg string) string {
		return "CAST(strftime('" + format + "', " + arg + ") AS INTEGER)"
	}
}

// sqliteModifier converts an interval to a date() modifier amount and unit.
// SQLite has no week modifier, so weeks become days.
func sqliteModifier(iv interval) (int, string) {
	if iv.unit == "week" {
		return iv.amount * 7, "days"
	}
	return iv.amount, iv.unit + "s"
}

func renderSQLiteDateArith(d dateArith) string {
	fn, base := "datetime", d.expr
	if d.fromToday() {
		fn, base = "date", "'now'"
	}

	if d.interval.param {
		sign := "+"
		if d.subtract {
			sign = "-"
		}
		amount := "?"
		unit := d.interval.unit + "s"
		if d.interval.unit == "week" {
			amount, unit = "(? * 7)", "days"
		}
		return fmt.Sprintf("%s(%s, '%s' || %s || ' %s')", fn, base, sign, amount, unit)
	}

	n, unit := sqliteModifier(d.interval)
	if d.subtract {
		n = -n
	}
	if d.fromToday() {
		return fmt.Sprintf("date('now','%+d %s')", n, unit)
	}
	return fmt.Sprintf("%s(%s, '%+d %s')", fn, strings.TrimSpace(base), n, unit)
}
