// Package dialect rewrites canonical SQL into the dialect of a bound backend.
//
// Canonical SQL is the MySQL-flavoured subset the application is written in:
// backtick identifiers, '?' placeholders, CURDATE(), NOW(), DATE_SUB/DATE_ADD
// with INTERVAL, DATE(), MONTH(), YEAR(), WEEK() and INSERT IGNORE.
// Translation is a pure function of its input.
package dialect

import (
	"errors"
	"fmt"

	"github.com/freshpress/laundrypos/pkg/core"
)

// Translator rewrites canonical SQL for one backend.
type Translator interface {
	// Kind returns the backend this translator targets.
	Kind() core.Kind
	// Translate returns the rewritten statement.
	Translate(sql string) (string, error)
}

// For returns the translator for a backend kind.
func For(kind core.Kind) (Translator, error) {
	switch kind {
	case core.KindPostgres:
		return postgresTranslator, nil
	case core.KindMySQL:
		return mysqlTranslator, nil
	case core.KindSQLite:
		return sqliteTranslator, nil
	case core.KindUnknown:
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownKind, kind)
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownKind, kind)
	}
}

// Translate rewrites canonical SQL for the given backend.
func Translate(kind core.Kind, sql string) (string, error) {
	t, err := For(kind)
	if err != nil {
		return "", err
	}
	return t.Translate(sql)
}

// rule is one rewrite step of a translator pipeline.
type rule struct {
	name  string
	apply func(string) (string, error)
}

// pipeline applies rules in order after checking that the input is balanced.
type pipeline struct {
	kind  core.Kind
	rules []rule
}

func (p *pipeline) Kind() core.Kind { return p.kind }

func (p *pipeline) Translate(sql string) (string, error) {
	if err := checkBalanced(sql); err != nil {
		return "", p.wrap(sql, "", err)
	}
	out := sql
	for _, r := range p.rules {
		next, err := r.apply(out)
		if err != nil {
			return "", p.wrap(sql, r.name, err)
		}
		out = next
	}
	return out, nil
}

func (p *pipeline) wrap(sql, ruleName string, err error) error {
	te := &core.TranslateError{Kind: p.kind, SQL: sql, Msg: err.Error()}
	var se *scanError
	if errors.As(err, &se) {
		te.Offset = se.offset
		te.Msg = se.msg
	}
	if ruleName != "" {
		te.Msg = ruleName + ": " + te.Msg
	}
	return te
}
