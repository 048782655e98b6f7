// Package instrumentation provides OpenTelemetry metrics and tracing for sheetdash.
//
// # Metrics
//
// HTTP:
//   - http_requests_total: Counter of HTTP requests by method, route, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Google Sheets:
//   - sheets_api_operations_total: Counter of Sheets API calls by operation and status
//   - sheets_api_operation_duration_seconds: Histogram of Sheets API call durations
//
// OAuth:
//   - oauth_auth_total: Counter of interactive authorizations by result
//   - oauth_token_refresh_total: Counter of access-token refreshes by result
//
// Record store:
//   - records_saved_total: Counter of records written
//   - store_operation_duration_seconds: Histogram of store call durations
//
// # Tracing
//
// Spans are created for Sheets API calls (sheets.<operation>) and store calls
// (store.<operation>). Tracing is off unless TRACING_EXPORTER is set.
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: sheetdash)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordSheetsOperation(ctx, instrumentation.SheetsOpBatchGet,
//		instrumentation.StatusSuccess, time.Since(start))
package instrumentation
