package commands

import (
	"fmt"

	"github.com/freshpress/laundrypos/internal/cli/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, laundrypos.yaml, .env, environment
variables and flags have been merged. Passwords are redacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if path := config.GetConfigFileUsed(); path != "" {
				_, _ = fmt.Fprintf(w, "# config file: %s\n", path)
			} else {
				_, _ = fmt.Fprintln(w, "# no config file found; using defaults and environment")
			}

			out, err := yaml.Marshal(cmdCtx.Cfg.Redacted())
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			_, err = w.Write(out)
			return err
		},
	}
}
