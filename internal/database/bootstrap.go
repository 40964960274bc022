package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/freshpress/laundrypos/internal/schema"
	"github.com/freshpress/laundrypos/pkg/adapter"
	"github.com/freshpress/laundrypos/pkg/core"
	"golang.org/x/crypto/bcrypt"
)

// Canonical statements used for credential repair.
const (
	selectAdminSQL = "SELECT id, password FROM users WHERE username = ?"
	updateAdminSQL = "UPDATE users SET password = ? WHERE id = ?"
)

// Bootstrap applies the schema script for the adapter's backend and then
// repairs the admin credential. Both steps are idempotent.
func Bootstrap(ctx context.Context, a adapter.Adapter, opts BootstrapOptions, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts = opts.withDefaults()

	if err := ApplySchema(ctx, a, opts.SchemaDir, logger); err != nil {
		return err
	}
	return RepairAdmin(ctx, a, opts, logger)
}

// ApplySchema runs the backend's schema script verbatim. A schema directory
// without a file for this backend is skipped.
func ApplySchema(ctx context.Context, a adapter.Adapter, dir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	kind := a.Kind()
	script, found, err := schema.Load(dir, kind)
	if err != nil {
		return err
	}
	if !found {
		logger.Warn("schema file not found, skipping", "dir", dir, "file", schema.FileName(kind))
		return nil
	}
	if err := a.ExecScript(ctx, script); err != nil {
		return fmt.Errorf("apply %s schema: %w", kind, err)
	}
	logger.Debug("schema applied", "backend", kind.String())
	return nil
}

// RepairAdmin re-hashes the admin password when the stored hash does not
// verify against the known default secret. A missing admin row is logged
// and left alone.
func RepairAdmin(ctx context.Context, q adapter.Querier, opts BootstrapOptions, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts = opts.withDefaults()

	res, err := q.Query(ctx, selectAdminSQL, opts.AdminUsername)
	if err != nil {
		return fmt.Errorf("look up admin user: %w", err)
	}
	rs, ok := core.AsRowSet(res)
	if !ok || rs.Len() == 0 {
		logger.Warn("admin user not found, skipping credential repair", "username", opts.AdminUsername)
		return nil
	}

	row := rs.First()
	stored, _ := row["password"].(string)
	if bcrypt.CompareHashAndPassword([]byte(stored), []byte(opts.AdminPassword)) == nil {
		logger.Debug("admin credential verified", "username", opts.AdminUsername)
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), opts.HashCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if _, err := q.Query(ctx, updateAdminSQL, string(hash), row["id"]); err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	logger.Info("admin credential repaired", "username", opts.AdminUsername)
	return nil
}
