package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JakeFAU/malcrawl/internal/app"
	"github.com/JakeFAU/malcrawl/internal/config"
)

func newCrawlCmd(v *viper.Viper, load func() (config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a range of character ids into a CSV file",
		Long: `Requests every character id in the selected range, resolves the most popular
related anime or manga, and writes one row per character. Exactly one of
--complete or --range is required. Example: malcrawl crawl -r 50,100 -w 4 -a`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, load, func(ctx context.Context, a *app.App) error {
				summary, err := a.Crawl(ctx)
				out := cmd.OutOrStdout()
				if summary.RunID != "" {
					fmt.Fprintln(out, summary.Counters.String())
					fmt.Fprintln(out, summary.Timing())
				}
				if err != nil {
					return fmt.Errorf("crawl: %w", err)
				}
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.BoolP("complete", "c", false, "request every character id from 1 to 200000")
	flags.IntSliceP("range", "r", nil, "inclusive id range, e.g. 50,100")
	flags.Float64P("wait", "w", 4, "seconds to wait before every request")
	flags.BoolP("append", "a", false, "append to an existing output file")
	flags.StringP("output", "o", "data/data.csv", "output CSV path")
	flags.BoolP("persist", "p", false, "keep the popularity cache across runs")
	flags.String("cache", "", "cache backend: memory, sqlite, or redis")
	flags.String("status-addr", "", "serve /healthz, /metrics and /v1/status on this address")
	flags.String("postgres-dsn", "", "also upsert rows into Postgres")
	flags.String("trace-exporter", "none", "span exporter: none or stdout")
	flags.String("trace-output", "", "file for exported spans (stderr when empty)")

	mustBind(v, "crawl.complete", flags.Lookup("complete"))
	mustBind(v, "crawl.range", flags.Lookup("range"))
	mustBind(v, "crawl.delay_seconds", flags.Lookup("wait"))
	mustBind(v, "crawl.append", flags.Lookup("append"))
	mustBind(v, "crawl.output", flags.Lookup("output"))
	mustBind(v, "crawl.persist", flags.Lookup("persist"))
	mustBind(v, "cache.backend", flags.Lookup("cache"))
	mustBind(v, "status.addr", flags.Lookup("status-addr"))
	mustBind(v, "postgres.dsn", flags.Lookup("postgres-dsn"))
	mustBind(v, "tracing.exporter", flags.Lookup("trace-exporter"))
	mustBind(v, "tracing.output", flags.Lookup("trace-output"))
	return cmd
}
