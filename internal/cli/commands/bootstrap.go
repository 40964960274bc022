package commands

import (
	"fmt"

	"github.com/freshpress/laundrypos/pkg/core"
	"github.com/spf13/cobra"
)

// NewBootstrapCommand creates the bootstrap command.
func NewBootstrapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Select a backend, apply the schema and repair the admin login",
		Long: `Select a database backend in priority order (PostgreSQL when configured,
then MySQL, then the SQLite file), apply its schema script and make sure the
admin account's password hash verifies.

Every step is idempotent; running bootstrap twice changes nothing. Unlike the
implicit bootstrap other commands perform, any failure here is an error.`,
		Example: `  laundrypos bootstrap
  DB_TYPE=sqlite SQLITE_PATH=./pos.db laundrypos bootstrap
  laundrypos bootstrap --schema-dir ./schema`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			db, err := cmdCtx.OpenDatabase(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			kind := db.Kind()
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Database ready: %s\n", kind)
			if kind == core.KindSQLite {
				_, _ = fmt.Fprintf(w, "  file: %s\n", cmdCtx.Cfg.DB.SQLitePath)
			}
			_, _ = fmt.Fprintf(w, "  admin user: %s\n", cmdCtx.Cfg.Admin.Username)
			return nil
		},
	}
}
