package main

import (
	"errors"
	"fmt"
	"strings"

	"meal-calendar/internal/app"
	"meal-calendar/internal/calday"
	"meal-calendar/internal/calendar"
	"meal-calendar/internal/tui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive calendar",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The alternate screen owns the terminal; log lines would tear it.
		quiet := zap.NewNop()
		stores, err := app.OpenStores(cfg, quiet)
		if err != nil {
			return err
		}
		defer stores.Close()

		loader := calendar.NewLoader(stores.Menus, stores.Recipes, quiet)
		return tui.Run(cmd.Context(), loader, calday.Today(cfg.Location()))
	},
}

var (
	gridWeek bool
	gridDate string
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Print the month (or week) around a date",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		today := calday.Today(cfg.Location())
		anchor := today
		if gridDate != "" {
			d, err := calday.Parse(gridDate, cfg.Location())
			if err != nil {
				return err
			}
			anchor = d
		}

		stores, err := app.OpenStores(cfg, logger)
		if err != nil {
			return err
		}
		defer stores.Close()

		s := calendar.NewState(anchor)
		if gridWeek {
			s.Mode = calendar.ModeWeek
		}
		s = calendar.NewLoader(stores.Menus, stores.Recipes, logger).Start(cmd.Context(), s)
		if s.FetchErr != "" {
			return errors.New(s.FetchErr)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tui.RenderGrid(s, today))
		return nil
	},
}

var (
	suggestDate  string
	suggestApply bool
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [request...]",
	Short: "Propose recipes for the open days of a week",
	Long: `suggest fills every day of the week around --date that has no menu yet.
Free text after the command is passed to the language model when
GEMINI_API_KEY is set; otherwise the catalog is rotated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		anchor := calday.Today(cfg.Location())
		if suggestDate != "" {
			d, err := calday.Parse(suggestDate, cfg.Location())
			if err != nil {
				return err
			}
			anchor = d
		}

		stores, err := app.OpenStores(cfg, logger)
		if err != nil {
			return err
		}
		defer stores.Close()

		gen, closeGen, err := app.NewTextGenerator(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeGen()

		p := app.NewPlanner(stores, gen, logger)
		suggestions, err := p.Suggest(ctx, calendar.WeekRange(anchor), strings.Join(args, " "))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(suggestions) == 0 {
			fmt.Fprintln(out, "every day already has a menu")
			return nil
		}
		for _, s := range suggestions {
			line := s.Date.String() + " " + s.RecipeName
			if s.Note != "" {
				line += " (" + s.Note + ")"
			}
			fmt.Fprintln(out, line)
		}
		if !suggestApply {
			return nil
		}

		created, skipped, err := p.Apply(ctx, suggestions)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "assigned %d, skipped %d\n", len(created), len(skipped))
		return nil
	},
}

func init() {
	suggestCmd.Flags().StringVarP(&suggestDate, "date", "d", "", "Any day of the week to fill (YYYY-MM-DD), default today")
	suggestCmd.Flags().BoolVar(&suggestApply, "apply", false, "Assign the suggestions instead of only printing them")

	gridCmd.Flags().BoolVarP(&gridWeek, "week", "w", false, "Show the week instead of the month")
	gridCmd.Flags().StringVarP(&gridDate, "date", "d", "", "Anchor date (YYYY-MM-DD), default today")
}
