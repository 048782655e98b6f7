// Package logging provides structured logging utilities for sheetdash.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "sheets.batch_get")
//	logger.Info("fetched ranges",
//	    logging.RangeCount(6),
//	    logging.Status(logging.StatusSuccess))
//
// # Security Considerations
//
// OAuth tokens are never logged directly; use SanitizeToken.
package logging
