// Package server exposes the dashboard pipeline over HTTP.
//
// # Routes
//
//   - GET /api/sheet-data: the structured dashboard
//   - POST /api/sheet-data/save: persist the save range, {message, count}
//   - GET /api/sheet-data/all: every stored record, {data}
//   - GET /auth/status: the credential manager state and pending consent URL
//   - GET /oauth2/callback: authorization code delivery for the callback provider
//   - GET /healthz, /readyz, /healthz/detailed: Kubernetes probes
//
// The three /api/sheet-data routes are also served without the /api prefix.
//
// Errors are JSON bodies of the form {"error": "..."}. A save whose range
// has no data rows answers 400; every other failure answers 500.
//
// Requests are rate limited per client IP and counted in the HTTP request
// metrics. MetricsServer serves the Prometheus registry on its own port.
package server
