// Package cli implements the kotoba command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kotoba/internal/kotoba/app"
	"github.com/bdobrica/Kotoba/internal/kotoba/observability"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format  string // "json" | "text"
	Agents  []string
	EnvFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the kotoba CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "kotoba",
		Short: "Kotoba - chat commands for personal records",
		Long: `Kotoba turns short Japanese or English chat messages into structured
commands for small personal-record agents (birthdays, gifts, bookmarks,
habits, expenses, backup settings) and replies with the outcome.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringSliceVar(&opts.Agents, "agent", nil, "enable only these agents, in order (default: KOTOBA_AGENTS)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewReplCommand(opts))
	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewRulesCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))
	return cmd
}

// loadConfig reads the environment, applies the flag overrides and sets up
// logging.
func loadConfig(opts *RootOptions) (*app.Config, error) {
	if err := app.LoadDotEnv(opts.EnvFile); err != nil {
		return nil, err
	}
	cfg, err := app.ConfigFromEnv()
	if err != nil {
		return nil, NewExitError(ExitCommandError, "invalid configuration", err)
	}
	if len(opts.Agents) > 0 {
		cfg.Agents = opts.Agents
		if err := cfg.Validate(); err != nil {
			return nil, NewExitError(ExitCommandError, "invalid --agent", err)
		}
	}
	observability.Setup(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}
