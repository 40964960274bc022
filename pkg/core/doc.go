// Package core defines the shared language of the laundrypos database layer.
//
// This package contains:
//   - The closed set of backend kinds (Kind)
//   - The uniform query result (Result, RowSet, WriteSummary)
//   - Connection configuration (AdapterConfig)
//   - Typed errors shared by translators, adapters and the selector
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
