package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newFetchCmd() *cobra.Command {
	var (
		ranges []string
		save   bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the dashboard once and print it as JSON",
		Long: `Fetch the dashboard ranges once and print the structured dashboard as
JSON. Authorizes on the terminal first when no valid token is stored.

With --range the given ranges are fetched in one batch and printed as raw
cell grids instead. With --save the rows of the save range are stored, as
POST /api/sheet-data/save does.`,
		Example: `  sheetdash fetch
  sheetdash fetch --range 'Dashboard!K9:R36' --range 'Dashboard!B6:I18'
  sheetdash fetch --save --storage-url sqlite://data/sheetdash.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.MetricsEnabled = false

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cfg, promptCodes(), save)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			return runFetch(ctx, a, ranges, save, cmd.OutOrStdout())
		},
	}

	addCredentialFlags(cmd)
	cmd.Flags().StringArrayVar(&ranges, "range", nil, "A1 range to fetch raw (repeatable)")
	cmd.Flags().BoolVar(&save, "save", false, "Store the rows of the save range")
	cmd.Flags().String("storage-url", "", "Record store URL used with --save. Can also use STORAGE_URL env var.")
	cmd.MarkFlagsMutuallyExclusive("range", "save")

	return cmd
}

func runFetch(ctx context.Context, a *app, ranges []string, save bool, out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	switch {
	case save:
		n, err := a.service.Save(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved %d records\n", n)
		return nil

	case len(ranges) > 0:
		ts, err := a.manager.EnsureAuthorized(ctx)
		if err != nil {
			return err
		}
		blocks, err := a.fetcher.FetchRanges(ctx, ts, ranges)
		if err != nil {
			return err
		}
		return enc.Encode(blocks)

	default:
		d, err := a.service.Dashboard(ctx)
		if err != nil {
			return err
		}
		return enc.Encode(d)
	}
}
