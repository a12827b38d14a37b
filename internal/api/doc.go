// Package api hosts the optional status server that runs beside a long crawl.
// Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/status for the live run counters and progress.
package api
