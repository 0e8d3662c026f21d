package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bdobrica/Kotoba/internal/kotoba/app"
)

// NewServeCommand creates the serve command: the Matrix bot plus the
// optional health server.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Matrix bot",
		Long: `Connect to Matrix with MATRIX_HOMESERVER, MATRIX_USER_ID and
MATRIX_ACCESS_TOKEN, listen in MATRIX_ROOMS and answer recognized commands.
Serves /health, /status and /metrics on KOTOBA_HTTP_ADDR when set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			kotoba, err := app.New(cfg)
			if err != nil {
				return NewExitError(ExitCommandError, "failed to initialize Kotoba", err)
			}
			defer kotoba.Stop()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return kotoba.Run(ctx)
		},
	}
}
