package app

import (
	"context"
	"fmt"

	"meal-calendar/internal/calendar"
	"meal-calendar/internal/client"
	"meal-calendar/internal/clipper"
	"meal-calendar/internal/config"
	"meal-calendar/internal/database"
	"meal-calendar/internal/llm"
	"meal-calendar/internal/menu"
	"meal-calendar/internal/planner"
	"meal-calendar/internal/recipe"

	"go.uber.org/zap"
)

// CatalogStore is the recipe side a front-end needs: the calendar catalog
// plus creation for imports.
type CatalogStore interface {
	calendar.RecipeCatalog
	RecipeStore
}

// Stores are the menu and recipe collaborators a front-end works against,
// either straight on the database or through the HTTP API.
type Stores struct {
	Menus   calendar.EntryStore
	Recipes CatalogStore
	// Remote is set when the stores talk to an API server.
	Remote bool

	close func() error
}

// Close releases the database, if one was opened.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores connects to cfg.APIBaseURL when set and opens cfg.DatabasePath
// otherwise.
func OpenStores(cfg *config.Config, logger *zap.Logger, opts ...menu.Option) (*Stores, error) {
	if cfg.APIBaseURL != "" {
		c := client.New(cfg.APIBaseURL)
		logger.Info("using remote api", zap.String("url", cfg.APIBaseURL))
		return &Stores{Menus: c.Menus(), Recipes: c.Recipes(), Remote: true}, nil
	}

	db, err := database.NewDB(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	recipes := recipe.NewRepository(db.SQL)
	menus := menu.NewService(menu.NewRepository(db.SQL), recipes, logger, opts...)
	return &Stores{Menus: menus, Recipes: recipes, close: db.Close}, nil
}

// NewTextGenerator connects to Gemini when a key is configured. Without
// one it returns a nil generator, which the clipper and planner accept.
func NewTextGenerator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (llm.TextGenerator, func() error, error) {
	if cfg.GeminiAPIKey == "" {
		logger.Info("GEMINI_API_KEY not set; language model features disabled")
		return nil, func() error { return nil }, nil
	}
	model := cfg.GeminiModel
	if model == "" {
		model = llm.DefaultGeminiModel
	}
	gen, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, model)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return gen, gen.Close, nil
}

// NewClipper builds the recipe clipper. A configured Gemini key adds the
// language model fallback for pages without structured data; the returned
// closer releases it.
func NewClipper(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*clipper.Clipper, func() error, error) {
	gen, closeFn, err := NewTextGenerator(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return clipper.NewClipper(gen), closeFn, nil
}

// NewPlanner builds the menu planner over stores, with gen as its optional
// language model.
func NewPlanner(stores *Stores, gen llm.TextGenerator, logger *zap.Logger) *planner.Planner {
	return planner.NewPlanner(stores.Menus, stores.Recipes, gen, logger)
}
