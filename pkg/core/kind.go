package core

import (
	"fmt"
	"strings"
)

// Kind identifies one of the supported database backends.
// The set is closed; switches over Kind must handle every value.
type Kind int

const (
	// KindUnknown is the zero value and never identifies a bound backend.
	KindUnknown Kind = iota
	// KindPostgres is a PostgreSQL server reached through a connection pool.
	KindPostgres
	// KindMySQL is a MySQL (or MariaDB) server reached through a connection pool.
	KindMySQL
	// KindSQLite is the embedded single-file fallback.
	KindSQLite
)

// String returns the canonical lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPostgres:
		return "postgres"
	case KindMySQL:
		return "mysql"
	case KindSQLite:
		return "sqlite"
	case KindUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Valid reports whether k names a real backend.
func (k Kind) Valid() bool {
	switch k {
	case KindPostgres, KindMySQL, KindSQLite:
		return true
	case KindUnknown:
		return false
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind maps a backend name, including common aliases, to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "postgresql", "pg", "pgsql":
		return KindPostgres, nil
	case "mysql", "mariadb":
		return KindMySQL, nil
	case "sqlite", "sqlite3":
		return KindSQLite, nil
	default:
		return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Kinds returns every supported backend in fallback priority order.
func Kinds() []Kind {
	return []Kind{KindPostgres, KindMySQL, KindSQLite}
}
