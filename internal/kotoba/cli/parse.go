package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kotoba/internal/kotoba/app"
	"github.com/bdobrica/Kotoba/internal/kotoba/storage"
)

// ParseResult is the JSON output of the parse command.
type ParseResult struct {
	Matched bool              `json:"matched"`
	Agent   string            `json:"agent,omitempty"`
	Intent  string            `json:"intent,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// NewParseCommand creates the parse command: recognize a message and print
// the command it would run, without running it.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <message>...",
		Short: "Show the command a message would run, without running it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			interps, err := app.BuildInterpreters(cfg, storage.NewMemory(cfg.Clock()), nil)
			if err != nil {
				return NewExitError(ExitCommandError, "failed to build agents", err)
			}
			p := app.NewPipeline(interps, app.PipelineOptions{})

			text := strings.Join(args, " ")
			res := ParseResult{}
			agent, command, ok, perr := p.Parse(text)
			if ok {
				res.Matched = true
				res.Agent = agent
				if perr != nil {
					res.Error = perr.Error()
				} else {
					res.Intent = command.Intent
					res.Fields = command.Canonical()
				}
			}
			if err := printParse(cmd, rootOpts, res); err != nil {
				return err
			}
			switch {
			case !res.Matched:
				return NewExitError(ExitFailure, "not a command", nil)
			case res.Error != "":
				return NewExitError(ExitFailure, "parse failed", perr)
			}
			return nil
		},
	}
}

func printParse(cmd *cobra.Command, rootOpts *RootOptions, res ParseResult) error {
	out := cmd.OutOrStdout()
	if rootOpts.Format == "json" {
		return writeJSON(out, res)
	}
	switch {
	case !res.Matched:
		fmt.Fprintln(out, "not a command")
	case res.Error != "":
		fmt.Fprintf(out, "%s: %s\n", res.Agent, res.Error)
	default:
		fmt.Fprintf(out, "%s/%s\n", res.Agent, res.Intent)
		keys := make([]string, 0, len(res.Fields))
		for k := range res.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %s = %s\n", k, res.Fields[k])
		}
	}
	return nil
}
