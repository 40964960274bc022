package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display laundrypos version and build information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "laundrypos v%s\n", version)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Laundry point-of-sale data layer for PostgreSQL, MySQL and SQLite")
		},
	}
}
