package testutil

import (
	"path/filepath"
	"testing"
)

// TempSQLitePath returns a database file path inside a per-test directory
// that is removed when the test ends.
func TempSQLitePath(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "laundry.db")
}
