package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JakeFAU/malcrawl/internal/app"
	"github.com/JakeFAU/malcrawl/internal/config"
)

func newEnrichCmd(v *viper.Viper, load func() (config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Append AniList demographics to a crawl CSV",
		Long: `Reads a CSV written by crawl and looks up each character id on AniList, which
shares ids with MyAnimeList. Gender, birth date, age, blood type and description
are appended to every row. Example: malcrawl enrich -i data/data.csv -o data/dataMod.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, load, func(ctx context.Context, a *app.App) error {
				res, err := a.Enrich(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), res.String())
				if err != nil {
					return fmt.Errorf("enrich: %w", err)
				}
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.Float64P("wait", "w", 0.7, "seconds to wait before every AniList request")
	flags.StringP("input", "i", "data/data.csv", "crawl CSV to read")
	flags.StringP("output", "o", "data/dataMod.csv", "enriched CSV to write")

	mustBind(v, "anilist.wait_seconds", flags.Lookup("wait"))
	mustBind(v, "anilist.input", flags.Lookup("input"))
	mustBind(v, "anilist.output", flags.Lookup("output"))
	return cmd
}
