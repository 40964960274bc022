// Package adapter defines the contract every database backend implements and
// the pieces shared between implementations: the transaction session state
// machine, the database/sql query path and the backend registry.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories.
package adapter

import (
	"context"

	"github.com/freshpress/laundrypos/pkg/core"
)

// Config is an alias for core.AdapterConfig.
type Config = core.AdapterConfig

// Querier runs canonical SQL and returns a uniform result.
// Adapters and open sessions both satisfy it.
type Querier interface {
	// Query translates sql for the bound backend, binds params positionally and
	// returns a *core.RowSet for SELECT statements or a *core.WriteSummary otherwise.
	Query(ctx context.Context, sql string, params ...any) (core.Result, error)
}

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	Querier

	// Connect establishes the connection (or pool) using the provided config.
	// It must verify reachability before returning nil.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Kind returns the backend this adapter talks to.
	Kind() core.Kind

	// BeginSession acquires a dedicated connection and opens a transaction on it.
	// The caller must Release the session.
	BeginSession(ctx context.Context) (*Session, error)

	// ExecScript runs a multi-statement script verbatim, without translation.
	ExecScript(ctx context.Context, script string) error
}
