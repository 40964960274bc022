// Package sqlite provides the embedded SQLite fallback adapter.
//
// This file registers the SQLite adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/freshpress/laundrypos/pkg/adapters/sqlite"
package sqlite

import (
	"log/slog"

	"github.com/freshpress/laundrypos/pkg/adapter"
	"github.com/freshpress/laundrypos/pkg/core"
)

func init() {
	adapter.Register(core.KindSQLite, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
