// Package cmd defines the malcrawl command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/malcrawl/internal/app"
	"github.com/JakeFAU/malcrawl/internal/config"
)

// newApp is the application factory. Tests replace it.
var newApp = app.Build

// newRootCmd creates the root command and its subcommands, all reading from v.
func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "malcrawl",
		Short: "Harvest MyAnimeList characters and their most popular works.",
		Long: `malcrawl walks a range of MyAnimeList character ids through the Jikan API,
finds each character's most popular anime or manga, and writes one CSV row per
character. The enrich command then appends AniList demographics to that CSV.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	cmd.PersistentFlags().Bool("dev", false, "use development logging")
	cmd.PersistentFlags().String("log-level", "", "minimum log level")
	mustBind(v, "logging.development", cmd.PersistentFlags().Lookup("dev"))
	mustBind(v, "logging.level", cmd.PersistentFlags().Lookup("log-level"))

	load := func() (config.Config, error) {
		return config.Load(v, cfgFile)
	}
	cmd.AddCommand(newCrawlCmd(v, load))
	cmd.AddCommand(newEnrichCmd(v, load))
	return cmd
}

// withApp builds the application, runs fn, and closes the application on every path.
func withApp(cmd *cobra.Command, load func() (config.Config, error), fn func(context.Context, *app.App) error) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	runErr := fn(ctx, a)
	if err := a.Close(context.Background()); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the run; every
// resource is still closed before the process exits.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd(config.New()).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
