package main

import (
	"fmt"

	"meal-calendar/internal/api"
	"meal-calendar/internal/app"
	"meal-calendar/internal/database"
	"meal-calendar/internal/menu"
	"meal-calendar/internal/metrics"
	"meal-calendar/internal/planner"
	"meal-calendar/internal/recipe"
	"meal-calendar/internal/storage"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	images, err := storage.NewImageStore(cfg.ImageDir, cfg.ImageBaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize image store: %w", err)
	}

	collectors := metrics.New()
	recipes := recipe.NewRepository(db.SQL)
	menus := menu.NewService(menu.NewRepository(db.SQL), recipes, logger, menu.WithRecorder(collectors))

	gen, closeGen, err := app.NewTextGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeGen()

	s := api.NewServer(api.Deps{
		Menus:     menus,
		Recipes:   recipes,
		Planner:   planner.NewPlanner(menus, recipes, gen, logger),
		Images:    images,
		Metrics:   collectors,
		Logger:    logger,
		Location:  cfg.Location(),
		DataPaths: []string{cfg.DatabasePath, cfg.ImageDir},
	})

	return s.ListenAndServe(ctx, cfg.Addr())
}
