// Package schema holds the per-backend schema scripts applied at bootstrap.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/freshpress/laundrypos/pkg/core"
)

var (
	//go:embed postgres.sql
	postgresSQL string
	//go:embed mysql.sql
	mysqlSQL string
	//go:embed sqlite.sql
	sqliteSQL string
)

// Embedded returns the built-in schema script for a backend.
func Embedded(kind core.Kind) (string, error) {
	switch kind {
	case core.KindPostgres:
		return postgresSQL, nil
	case core.KindMySQL:
		return mysqlSQL, nil
	case core.KindSQLite:
		return sqliteSQL, nil
	case core.KindUnknown:
		return "", fmt.Errorf("%w: %s", core.ErrUnknownKind, kind)
	default:
		return "", fmt.Errorf("%w: %s", core.ErrUnknownKind, kind)
	}
}

// FileName returns the name of the schema file for a backend, for example
// schema.postgres.sql.
func FileName(kind core.Kind) string {
	return "schema." + kind.String() + ".sql"
}

// Load returns the schema script for kind. When dir is empty the embedded
// script is used. Otherwise the script is read from dir; found is false when
// the file does not exist.
func Load(dir string, kind core.Kind) (script string, found bool, err error) {
	if !kind.Valid() {
		return "", false, fmt.Errorf("%w: %s", core.ErrUnknownKind, kind)
	}
	if dir == "" {
		s, err := Embedded(kind)
		return s, err == nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName(kind)))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read schema file: %w", err)
	}
	return string(data), true, nil
}
