// Package crawl walks a character id range, resolves each character's most
// popular related work, and writes one row per character to the configured sinks.
package crawl
