package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kotoba/internal/kotoba/store"
)

type auditOptions struct {
	trace  string
	sender string
	agent  string
	limit  int
}

// NewAuditCommand prints recent audit rows from the database.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &auditOptions{}
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recently dispatched commands",
		Long: `Print the audit log, newest first. Use --trace with the trace id from an
error reply to find the message that caused it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			st, err := store.New(cfg.DatabasePath)
			if err != nil {
				return NewExitError(ExitCommandError, "failed to open database", err)
			}
			defer st.Close()

			entries, err := st.ListAudit(cmd.Context(), store.AuditQuery{
				TraceID: opts.trace,
				Sender:  opts.sender,
				Agent:   opts.agent,
				Limit:   opts.limit,
			})
			if err != nil {
				return NewExitError(ExitCommandError, "failed to read audit log", err)
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				if entries == nil {
					entries = []store.AuditEntry{}
				}
				return writeJSON(out, entries)
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-8s %-10s %-16s %s  %s\n",
					e.Time.In(cfg.Location).Format("2006-01-02 15:04:05"), e.Agent, e.Intent, e.Result, e.Sender, e.TraceID)
				if text, ok := e.Payload["text"].(string); ok {
					fmt.Fprintf(out, "    %s\n", text)
				}
				if e.Error != "" {
					fmt.Fprintf(out, "    error: %s\n", e.Error)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.trace, "trace", "", "only rows with this trace id")
	cmd.Flags().StringVar(&opts.sender, "sender", "", "only rows from this Matrix user")
	cmd.Flags().StringVar(&opts.agent, "filter-agent", "", "only rows for this agent")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "maximum number of rows")
	return cmd
}
