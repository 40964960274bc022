package dialect

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/freshpress/laundrypos/pkg/core"
)

var postgresTranslator Translator = &postgresPipeline{}

// postgresPipeline wraps the rule pipeline with the statement-level
// INSERT rewrites, which need to know whether the input was INSERT IGNORE.
type postgresPipeline struct{}

var postgresRules = &pipeline{
	kind: core.KindPostgres,
	rules: append(append([]rule{
		{name: "identifiers", apply: backticksToDoubleQuotes},
	}, dateArithRules(renderPostgresDateArith)...),
		replaceCall("CURDATE", "CURRENT_DATE"),
		unaryCall("DATE", func(arg string) string { return "(" + arg + ")::date" }),
		unaryCall("MONTH", extractField("MONTH")),
		unaryCall("YEAR", extractField("YEAR")),
		unaryCall("WEEK", extractField("WEEK")),
		rule{name: "placeholders", apply: numberPlaceholders},
	),
}

func (*postgresPipeline) Kind() core.Kind { return core.KindPostgres }

func (*postgresPipeline) Translate(sql string) (string, error) {
	stmt, ignore := stripInsertIgnore(sql, "INSERT INTO")
	out, err := postgresRules.Translate(stmt)
	if err != nil {
		var te *core.TranslateError
		if errors.As(err, &te) {
			te.SQL = sql
		}
		return "", err
	}
	if !core.IsInsert(out) {
		return out, nil
	}

	out = trimStatementEnd(out)
	if ignore && !HasKeyword(out, "CONFLICT") {
		out += " ON CONFLICT DO NOTHING"
	}
	if !HasKeyword(out, "RETURNING") {
		out += " RETURNING id"
	}
	return out, nil
}

var insertIgnoreRe = regexp.MustCompile(`(?i)^(\s*)INSERT\s+IGNORE\s+INTO\b`)

// stripInsertIgnore rewrites a leading INSERT IGNORE INTO with the given
// replacement and reports whether it was present.
func stripInsertIgnore(sql, with string) (string, bool) {
	loc := insertIgnoreRe.FindStringSubmatchIndex(sql)
	if loc == nil {
		return sql, false
	}
	return sql[:loc[3]] + with + sql[loc[1]:], true
}

// backticksToDoubleQuotes converts MySQL-quoted identifiers to standard
// double-quoted identifiers.
func backticksToDoubleQuotes(s string) (string, error) {
	if !strings.Contains(s, "`") {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '`' {
			end, err := skipOpaque(s, i)
			if err != nil {
				return "", err
			}
			name := strings.ReplaceAll(s[i+1:end-1], "``", "`")
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(name, `"`, `""`))
			b.WriteByte('"')
			i = end
			continue
		}
		j, err := skipOpaque(s, i)
		if err != nil {
			return "", err
		}
		if j == i {
			j = i + 1
		}
		b.WriteString(s[i:j])
		i = j
	}
	return b.String(), nil
}

func numberPlaceholders(s string) (string, error) {
	return replacePlaceholders(s, func(n int) string {
		return "$" + strconv.Itoa(n)
	})
}

func extractField(field string) func(string) string {
	return func(arg string) string {
		return "EXTRACT(" + field + " FROM " + arg + ")"
	}
}

func renderPostgresDateArith(d dateArith) string {
	op := "+"
	if d.subtract {
		op = "-"
	}
	base := "(" + d.expr + ")"
	if d.fromToday() {
		base = "CURRENT_DATE"
	}
	if d.interval.param {
		return fmt.Sprintf("%s %s (? * INTERVAL '1 %s')", base, op, d.interval.unit)
	}
	return fmt.Sprintf("%s %s INTERVAL '%d %ss'", base, op, d.interval.amount, d.interval.unit)
}
