package core

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrUnknownKind is returned when a backend name or value is not supported.
	ErrUnknownKind = errors.New("unknown database backend")
	// ErrParamCount is returned when placeholders and bind parameters disagree.
	ErrParamCount = errors.New("placeholder count does not match parameter count")
	// ErrSessionNotOpen is returned when a query is issued on a session that is
	// not in the open state.
	ErrSessionNotOpen = errors.New("transaction session is not open")
	// ErrNotConnected is returned when an adapter is used before Connect.
	ErrNotConnected = errors.New("database connection not established")
)

// ConfigError reports a fatal configuration problem, such as an explicitly
// configured connection string that cannot be reached.
type ConfigError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s configuration: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s configuration: %s", e.Kind, e.Msg)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TranslateError reports canonical SQL the dialect translator could not rewrite.
type TranslateError struct {
	Kind   Kind
	SQL    string
	Offset int
	Msg    string
}

func (e *TranslateError) Error() string {
	return fmt.Sprintf("translate to %s: %s at offset %d: %s", e.Kind, e.Msg, e.Offset, e.SQL)
}

// QueryError wraps a driver failure together with the SQL actually sent.
type QueryError struct {
	Kind Kind
	SQL  string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s query failed: %v (sql: %s)", e.Kind, e.Err, e.SQL)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ParamCountError returns an error wrapping ErrParamCount with both counts.
func ParamCountError(placeholders, params int) error {
	return fmt.Errorf("%w: %d placeholders, %d parameters", ErrParamCount, placeholders, params)
}
