package dialect

import "github.com/freshpress/laundrypos/pkg/core"

// identity passes canonical SQL through unchanged.
type identity struct{}

var mysqlTranslator Translator = identity{}

func (identity) Kind() core.Kind { return core.KindMySQL }

func (identity) Translate(sql string) (string, error) { return sql, nil }
