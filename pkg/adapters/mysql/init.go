// Package mysql provides the MySQL backend adapter.
//
// This file registers the MySQL adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/freshpress/laundrypos/pkg/adapters/mysql"
package mysql

import (
	"log/slog"

	"github.com/freshpress/laundrypos/pkg/adapter"
	"github.com/freshpress/laundrypos/pkg/core"
)

func init() {
	adapter.Register(core.KindMySQL, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
