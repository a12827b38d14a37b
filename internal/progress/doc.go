// Package progress carries coarse crawl progress events from the crawl loop to
// pluggable sinks (structured logs, Prometheus) without blocking the loop.
package progress
