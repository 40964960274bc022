package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/freshpress/laundrypos/internal/database"
	"github.com/freshpress/laundrypos/pkg/adapter"
	"github.com/spf13/cobra"
)

const (
	replPrompt      = "laundrypos> "
	replContinue    = "       ...> "
	replTxPrompt    = "laundrypos*> "
	historyFileName = ".laundrypos_history"
)

// repl holds the state of one interactive session.
type repl struct {
	db      *database.DB
	session *adapter.Session
	format  string
	out     io.Writer
	errOut  io.Writer
}

func runQueryREPL(cmd *cobra.Command, cmdCtx *CommandContext, format string) error {
	ctx := cmd.Context()

	db, err := cmdCtx.OpenDatabase(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	r := &repl{db: db, format: format, out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
	defer r.release()

	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, historyFileName)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newTableCompleter(ctx, r),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(r.out, "laundrypos query REPL (backend: %s)\n", db.Kind())
	_, _ = fmt.Fprintln(r.out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(r.out)

	var multiLineBuffer strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			multiLineBuffer.Reset()
			rl.SetPrompt(r.prompt())
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if multiLineBuffer.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := r.dot(ctx, line); quit {
				break
			}
			rl.SetPrompt(r.prompt())
			continue
		}

		// Accumulate multi-line SQL until semicolon
		multiLineBuffer.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			multiLineBuffer.WriteString(" ")
			rl.SetPrompt(replContinue)
			continue
		}
		rl.SetPrompt(r.prompt())

		query := multiLineBuffer.String()
		multiLineBuffer.Reset()

		if err := r.exec(ctx, query); err != nil {
			_, _ = fmt.Fprintf(r.errOut, "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(r.out)
	}

	return nil
}

func (r *repl) prompt() string {
	if r.session != nil {
		return replTxPrompt
	}
	return replPrompt
}

// target is the open session when there is one, otherwise the service.
func (r *repl) target() querier {
	if r.session != nil {
		return r.session
	}
	return r.db
}

// exec runs one statement and renders its result.
func (r *repl) exec(ctx context.Context, query string) error {
	query = trimStatement(query)
	if query == "" {
		return nil
	}
	res, err := r.target().Query(ctx, query)
	if err != nil {
		return err
	}
	return renderResult(r.out, res, r.format)
}

// dot handles a dot-command and reports whether the REPL should exit.
func (r *repl) dot(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(r.out)

	case ".tables":
		r.report(listTables(ctx, r.out, r.target(), r.db.Kind(), r.format))

	case ".schema":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(r.errOut, "Usage: .schema <table>")
			return false
		}
		r.report(showSchema(ctx, r.out, r.target(), r.db.Kind(), parts[1], r.format))

	case ".format":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(r.out, "format: %s\n", r.format)
			return false
		}
		format, err := resolveFormat(parts[1], "")
		if err != nil {
			r.report(err)
			return false
		}
		r.format = format

	case ".backend":
		_, _ = fmt.Fprintf(r.out, "backend: %s\n", r.db.Kind())

	case ".begin":
		if r.session != nil {
			_, _ = fmt.Fprintln(r.errOut, "Transaction already open")
			return false
		}
		s, err := r.db.GetConnection(ctx)
		if err != nil {
			r.report(err)
			return false
		}
		r.session = s
		_, _ = fmt.Fprintf(r.out, "Transaction %s started\n", s.ID())

	case ".commit":
		if r.session == nil {
			_, _ = fmt.Fprintln(r.errOut, "No open transaction")
			return false
		}
		r.report(r.session.Commit(ctx))
		r.release()

	case ".rollback":
		if r.session == nil {
			_, _ = fmt.Fprintln(r.errOut, "No open transaction")
			return false
		}
		r.report(r.session.Rollback(ctx))
		r.release()

	case ".clear":
		_, _ = fmt.Fprint(r.out, "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(r.errOut, "Unknown command: %s (type .help for commands)\n", command)
	}
	return false
}

// release ends the current session. An uncommitted transaction is rolled back.
func (r *repl) release() {
	if r.session == nil {
		return
	}
	if r.session.State() == adapter.StateOpen {
		_, _ = fmt.Fprintln(r.errOut, "Rolling back open transaction")
	}
	r.session.Release()
	r.session = nil
}

func (r *repl) report(err error) {
	if err != nil {
		_, _ = fmt.Fprintf(r.errOut, "Error: %v\n", err)
	}
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .tables         List tables and views
  .schema <name>  Show the columns of a table or view
  .format [name]  Show or set the output format (table, json, csv, md)
  .backend        Show the selected backend
  .begin          Start a transaction
  .commit         Commit the open transaction
  .rollback       Roll back the open transaction
  .clear          Clear the screen
  .quit / .exit   Exit the REPL (an open transaction is rolled back)

Tips:
  - SQL statements must end with a semicolon (;)
  - Write canonical SQL; it is translated for the selected backend
  - Use arrow keys to navigate history
  - Tab completion works for table names
`
	_, _ = fmt.Fprintln(w, help)
}

// newTableCompleter creates a readline completer for table names.
func newTableCompleter(ctx context.Context, r *repl) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for _, name := range tableNames(ctx, r.db, r.db.Kind()) {
		items = append(items, readline.PcItem(name))
	}

	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema"),
		readline.PcItem(".format",
			readline.PcItem("table"),
			readline.PcItem("json"),
			readline.PcItem("csv"),
			readline.PcItem("md"),
		),
		readline.PcItem(".backend"),
		readline.PcItem(".begin"),
		readline.PcItem(".commit"),
		readline.PcItem(".rollback"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
