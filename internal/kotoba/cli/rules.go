package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kotoba/internal/kotoba/agents"
	"github.com/bdobrica/Kotoba/internal/kotoba/rulesfile"
)

// RulesResult is the JSON output of rules validate.
type RulesResult struct {
	Valid   bool     `json:"valid"`
	Agent   string   `json:"agent,omitempty"`
	Intents []string `json:"intents,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// NewRulesCommand groups the rules-file subcommands.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Work with operator-defined agent rules files",
	}
	cmd.AddCommand(newRulesValidateCommand(rootOpts))
	return cmd
}

func newRulesValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a rules file against the schema and compile its triggers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := RulesResult{}
			err := validateRules(args[0], &res)
			if err != nil {
				res.Error = err.Error()
			}
			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				if werr := writeJSON(out, res); werr != nil {
					return werr
				}
			} else if res.Valid {
				fmt.Fprintf(out, "✓ %s: agent %q, %d intent(s)\n", args[0], res.Agent, len(res.Intents))
			} else {
				fmt.Fprintf(out, "✗ %s\n", res.Error)
			}
			if err != nil {
				return NewExitError(ExitFailure, "invalid rules file", err)
			}
			return nil
		},
	}
}

func validateRules(path string, res *RulesResult) error {
	f, err := rulesfile.Load(path)
	if err != nil {
		return err
	}
	reg, err := f.Registry(agents.Env{})
	if err != nil {
		return err
	}
	res.Valid = true
	res.Agent = reg.Agent()
	res.Intents = reg.Intents()
	return nil
}
