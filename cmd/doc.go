// Package cmd implements the command-line interface for sheetdash.
//
// This package provides the following commands:
//   - serve: Start the dashboard HTTP API and the metrics server
//   - authorize: Obtain and store an OAuth token on the terminal
//   - fetch: Fetch the dashboard once and print it as JSON
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all commands
//
// The serve command is the default command when no subcommand is specified.
package cmd
