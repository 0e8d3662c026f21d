package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kotoba/common/version"
)

// NewVersionCommand prints build information.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), version.Get())
			}
			fmt.Fprintln(cmd.OutOrStdout(), "kotoba "+version.Info())
			return nil
		},
	}
}
