package main

import (
	"fmt"

	"meal-calendar/internal/app"
	"meal-calendar/internal/ghost"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var clipCmd = &cobra.Command{
	Use:   "clip <url>",
	Short: "Save the recipe published at a URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		stores, err := app.OpenStores(cfg, logger)
		if err != nil {
			return err
		}
		defer stores.Close()

		recipeClipper, closeClipper, err := app.NewClipper(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeClipper()

		rec, err := app.NewApp(nil, stores.Recipes, recipeClipper, logger).ClipURL(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s) as %s\n", rec.Name, rec.Category, rec.ID)
		return nil
	},
}

var importTag string

var importGhostCmd = &cobra.Command{
	Use:   "import-ghost",
	Short: "Import recipe posts from the Ghost blog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireGhost(); err != nil {
			return err
		}
		stores, err := app.OpenStores(cfg, logger)
		if err != nil {
			return err
		}
		defer stores.Close()

		a := app.NewApp(ghost.NewClient(cfg), stores.Recipes, nil, logger)
		report, err := a.ImportFromGhost(cmd.Context(), importTag)
		if err != nil {
			return err
		}
		for title, ferr := range report.Failed {
			logger.Warn("post not imported", zap.String("title", title), zap.Error(ferr))
		}
		fmt.Fprintln(cmd.OutOrStdout(), report.String())
		return nil
	},
}

var publishNow bool

var publishCmd = &cobra.Command{
	Use:   "publish <recipe-id>",
	Short: "Post a recipe to the Ghost blog (as a draft unless --now)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireGhost(); err != nil {
			return err
		}
		stores, err := app.OpenStores(cfg, logger)
		if err != nil {
			return err
		}
		defer stores.Close()

		a := app.NewApp(ghost.NewClient(cfg), stores.Recipes, nil, logger)
		post, err := a.PublishRecipe(cmd.Context(), args[0], publishNow)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s post %s created for %q\n", post.Status, post.ID, post.Title)
		return nil
	},
}

func init() {
	importGhostCmd.Flags().StringVar(&importTag, "tag", app.RecipeTag, "Only import posts with this tag (empty for all)")
	publishCmd.Flags().BoolVar(&publishNow, "now", false, "Publish immediately instead of saving a draft")
}
