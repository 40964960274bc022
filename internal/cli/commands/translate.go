package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/freshpress/laundrypos/pkg/core"
	"github.com/freshpress/laundrypos/pkg/dialect"
	"github.com/spf13/cobra"
)

// TranslateOptions holds options for the translate command.
type TranslateOptions struct {
	To    string
	Input string
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand() *cobra.Command {
	opts := &TranslateOptions{}

	cmd := &cobra.Command{
		Use:   "translate [SQL]",
		Short: "Show how canonical SQL is rewritten for each backend",
		Long: `Translate a canonical (MySQL-flavoured) statement into the dialect of one
or all backends without connecting to a database.`,
		Example: `  # All backends
  laundrypos translate "SELECT * FROM sales WHERE DATE(created_at) >= DATE_SUB(CURDATE(), INTERVAL 7 DAY)"

  # Only PostgreSQL
  laundrypos translate --to postgres "INSERT IGNORE INTO customers (name) VALUES (?)"

  # From a file
  laundrypos translate -i report.sql --to sqlite`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "all", "Target backend: postgres, mysql, sqlite or all")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")

	_ = cmd.RegisterFlagCompletionFunc("to", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"all", "postgres", "mysql", "sqlite"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runTranslate(cmd *cobra.Command, args []string, opts *TranslateOptions) error {
	var sqlText string
	switch {
	case len(args) > 0:
		sqlText = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlText = string(content)
	default:
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlText = string(content)
	}

	sqlText = trimStatement(sqlText)
	if sqlText == "" {
		return errors.New("no SQL statement provided")
	}

	w := cmd.OutOrStdout()

	if !strings.EqualFold(opts.To, "all") {
		kind, err := core.ParseKind(opts.To)
		if err != nil {
			return err
		}
		out, err := dialect.Translate(kind, sqlText)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, out)
		return nil
	}

	var errs []error
	for i, kind := range core.Kinds() {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintf(w, "-- %s\n", kind)
		out, err := dialect.Translate(kind, sqlText)
		if err != nil {
			_, _ = fmt.Fprintf(w, "-- error: %v\n", err)
			errs = append(errs, err)
			continue
		}
		_, _ = fmt.Fprintln(w, out)
	}
	return errors.Join(errs...)
}
