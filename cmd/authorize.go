package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newAuthorizeCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Obtain and store an OAuth token for Google Sheets",
		Long: `Run the authorization-code grant on the terminal and store the token.

The consent URL is printed; paste the code shown after granting access. A
stored token that is a well-formed JSON object is kept as is unless --force
is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.MetricsEnabled = false

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cfg, promptCodes(), false)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			return runAuthorize(ctx, a, force, cmd.OutOrStdout())
		},
	}

	addCredentialFlags(cmd)
	cmd.Flags().BoolVar(&force, "force", false, "Discard the stored token and authorize again")

	return cmd
}

func runAuthorize(ctx context.Context, a *app, force bool, out io.Writer) error {
	if force {
		if err := a.tokens.Clear(); err != nil {
			return err
		}
		a.manager.Reset()
	}

	if _, err := a.manager.EnsureAuthorized(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "Token stored at %s\n", a.tokens.Path())
	return nil
}
