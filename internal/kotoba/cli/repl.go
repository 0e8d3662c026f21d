package cli

import (
	"bufio"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kotoba/internal/kotoba/app"
	"github.com/bdobrica/Kotoba/internal/kotoba/storage"
	"github.com/bdobrica/Kotoba/internal/kotoba/store"
)

// replSender is the sender recorded for messages typed at the repl.
const replSender = "@local:repl"

type replOptions struct {
	memory bool
}

// NewReplCommand creates the repl command: one message per input line, one
// reply per recognized command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &replOptions{}
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Type commands at a prompt instead of chatting over Matrix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd, rootOpts, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.memory, "memory", false, "keep records in memory instead of the database")
	return cmd
}

func runRepl(cmd *cobra.Command, rootOpts *RootOptions, opts *replOptions) error {
	cfg, err := loadConfig(rootOpts)
	if err != nil {
		return err
	}

	var (
		st      storage.Storage
		auditor app.Auditor
	)
	if opts.memory {
		st = storage.NewMemory(cfg.Clock())
	} else {
		db, err := store.New(cfg.DatabasePath)
		if err != nil {
			return NewExitError(ExitCommandError, "failed to open database", err)
		}
		defer db.Close()
		db = db.WithClock(cfg.Clock())
		st, auditor = db, db
	}

	interps, err := app.BuildInterpreters(cfg, st, slog.Default())
	if err != nil {
		return NewExitError(ExitCommandError, "failed to build agents", err)
	}
	p := app.NewPipeline(interps, app.PipelineOptions{
		Lang:    app.LangFor(cfg),
		Timeout: cfg.CommandTimeout,
		Auditor: auditor,
	})

	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		res, ok := p.Handle(cmd.Context(), replSender, line)
		if !ok {
			continue
		}
		if rootOpts.Format == "json" {
			if err := writeJSON(out, res.Result); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(out, res.Plain)
	}
	return scanner.Err()
}
