// Package postgres provides the PostgreSQL backend adapter.
//
// This file registers the PostgreSQL adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/freshpress/laundrypos/pkg/adapters/postgres"
package postgres

import (
	"log/slog"

	"github.com/freshpress/laundrypos/pkg/adapter"
	"github.com/freshpress/laundrypos/pkg/core"
)

func init() {
	adapter.Register(core.KindPostgres, func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
