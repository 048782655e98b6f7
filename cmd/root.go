package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/sheetdash/internal/config"
	"github.com/teemow/sheetdash/internal/logging"
)

var (
	debugMode  bool
	logFormat  string
	configFile string
	envFile    string
)

// rootCmd represents the base command for the sheetdash application
var rootCmd = &cobra.Command{
	Use:   "sheetdash",
	Short: "Serves a Google Sheets dashboard as JSON",
	Long: `sheetdash reads the dashboard ranges of a Google spreadsheet in a single
batched call, reshapes them into overall, remedial teaching and paper seminar
sections and serves them as JSON. Rows of the save range can be stored in
SQLite or PostgreSQL.

It can run as:
  - An HTTP service (default)
  - A one-shot fetch that prints the dashboard`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		slog.SetDefault(logging.NewLogger(os.Stderr, logFormat, debugMode))
		return nil
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "sheetdash version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatText, "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Optional TOML file with the spreadsheet ID, storage URL and range layout")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading configuration (missing file is ignored)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthorizeCmd())
	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
