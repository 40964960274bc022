package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/freshpress/laundrypos/internal/database"
	"github.com/freshpress/laundrypos/pkg/core"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// querier is satisfied by the database service and by an open session.
type querier interface {
	Query(ctx context.Context, sql string, params ...any) (core.Result, error)
}

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
	Params []string
	Tx     bool
	Commit bool
}

var queryFormats = []string{"table", "json", "csv", "md"}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run canonical SQL against the selected backend",
		Long: `Run a canonical (MySQL-flavoured) SQL statement against whichever backend
is selected. The statement is translated for the bound backend before it runs,
so the same text works on PostgreSQL, MySQL and SQLite.

SQL is read from the arguments, from --input, or from stdin. When invoked
without arguments on a terminal, enters interactive REPL mode.`,
		Example: `  # Read rows
  laundrypos query "SELECT * FROM customers WHERE phone = ?" -p 555-0100

  # Date helpers are translated per backend
  laundrypos query "SELECT COUNT(*) AS n FROM sales WHERE DATE(created_at) = CURDATE()"

  # Try a write inside a transaction and roll it back
  laundrypos query --tx "UPDATE services SET base_price = base_price * 1.1"

  # Output as JSON
  laundrypos query "SELECT * FROM services" --format json

  # List tables
  laundrypos query tables

  # Interactive mode
  laundrypos query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Format, "format", "f", "", "Output format: table, json, csv, md (default from config)")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "Bind value for the next '?' placeholder (repeatable; 'null' binds NULL)")
	cmd.Flags().BoolVar(&opts.Tx, "tx", false, "Run inside a transaction and roll back unless --commit is given")
	cmd.Flags().BoolVar(&opts.Commit, "commit", false, "Commit the --tx transaction")

	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return queryFormats, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.AddCommand(newQueryTablesCommand(opts))
	cmd.AddCommand(newQuerySchemaCommand(opts))

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	format, err := resolveFormat(opts.Format, cmdCtx.Cfg.Output)
	if err != nil {
		return err
	}
	if opts.Commit && !opts.Tx {
		return errors.New("--commit requires --tx")
	}

	var sqlQuery string
	in := cmd.InOrStdin()

	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case isTerminal(in):
		return runQueryREPL(cmd, cmdCtx, format)
	default:
		content, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	}

	sqlQuery = trimStatement(sqlQuery)
	if sqlQuery == "" {
		return errors.New("no SQL statement provided")
	}

	ctx := cmd.Context()
	db, err := cmdCtx.OpenDatabase(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	params := parseParams(opts.Params)

	var res core.Result
	if opts.Tx {
		res, err = runInSession(ctx, db, sqlQuery, params, opts.Commit, cmd.ErrOrStderr())
	} else {
		res, err = db.Query(ctx, sqlQuery, params...)
	}
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return renderResult(cmd.OutOrStdout(), res, format)
}

// runInSession runs one statement in a transaction. The transaction is
// rolled back unless commit is set.
func runInSession(ctx context.Context, db *database.DB, sqlQuery string, params []any, commit bool, errOut io.Writer) (core.Result, error) {
	s, err := db.GetConnection(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Release()

	res, err := s.Query(ctx, sqlQuery, params...)
	if err != nil {
		_ = s.Rollback(ctx)
		return nil, err
	}
	if commit {
		if err := s.Commit(ctx); err != nil {
			return nil, err
		}
		return res, nil
	}
	if err := s.Rollback(ctx); err != nil {
		return nil, err
	}
	_, _ = fmt.Fprintln(errOut, "Transaction rolled back (use --commit to keep changes)")
	return res, nil
}

// newQueryTablesCommand creates the tables subcommand.
func newQueryTablesCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables and views in the selected database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCatalog(cmd, opts, func(ctx context.Context, db *database.DB, format string) error {
				return listTables(ctx, cmd.OutOrStdout(), db, db.Kind(), format)
			})
		},
	}
}

// newQuerySchemaCommand creates the schema subcommand.
func newQuerySchemaCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show the columns of a table or view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCatalog(cmd, opts, func(ctx context.Context, db *database.DB, format string) error {
				return showSchema(ctx, cmd.OutOrStdout(), db, db.Kind(), args[0], format)
			})
		},
	}
}

func withCatalog(cmd *cobra.Command, opts *QueryOptions, fn func(context.Context, *database.DB, string) error) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	format, err := resolveFormat(opts.Format, cmdCtx.Cfg.Output)
	if err != nil {
		return err
	}
	db, err := cmdCtx.OpenDatabase(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return fn(cmd.Context(), db, format)
}

func resolveFormat(flagValue, configured string) (string, error) {
	format := strings.ToLower(flagValue)
	if format == "" {
		format = strings.ToLower(configured)
	}
	switch format {
	case "":
		return "table", nil
	case "markdown":
		return "md", nil
	}
	if slices.Contains(queryFormats, format) {
		return format, nil
	}
	return "", fmt.Errorf("unknown format %q (expected one of: %s)", format, strings.Join(queryFormats, ", "))
}

// parseParams converts --param values: "null" binds NULL, integers and
// decimals in canonical form bind as numbers, everything else as text.
func parseParams(raw []string) []any {
	params := make([]any, len(raw))
	for i, s := range raw {
		params[i] = parseParam(s)
	}
	return params
}

func parseParam(s string) any {
	if strings.EqualFold(s, "null") {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && strconv.FormatFloat(f, 'f', -1, 64) == s {
		return f
	}
	return s
}

// trimStatement removes surrounding whitespace and trailing semicolons.
func trimStatement(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "; \t\r\n")
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
