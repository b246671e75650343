// Package app wires the recipe catalog to its outside sources: Ghost posts
// in, Ghost posts out, and web pages clipped into recipes.
package app

import (
	"context"
	"fmt"
	"strings"

	"meal-calendar/internal/clipper"
	"meal-calendar/internal/ghost"
	"meal-calendar/internal/recipe"
	"meal-calendar/internal/shared"

	"go.uber.org/zap"
)

// RecipeTag marks the Ghost posts that hold recipes.
const RecipeTag = "recipe"

// RecipeStore is the part of the catalog the app writes to.
type RecipeStore interface {
	Create(ctx context.Context, r recipe.Recipe) (recipe.Recipe, error)
	Get(ctx context.Context, id string) (recipe.Recipe, error)
	List(ctx context.Context, f recipe.Filter) ([]recipe.Recipe, error)
}

// App holds the application's dependencies.
type App struct {
	ghostClient   ghost.Client
	recipes       RecipeStore
	recipeClipper *clipper.Clipper
	logger        *zap.Logger
}

// NewApp creates and initializes a new App instance. ghostClient and
// recipeClipper may be nil when the matching feature is not configured.
func NewApp(ghostClient ghost.Client, recipes RecipeStore, recipeClipper *clipper.Clipper, logger *zap.Logger) *App {
	return &App{
		ghostClient:   ghostClient,
		recipes:       recipes,
		recipeClipper: recipeClipper,
		logger:        logger,
	}
}

// ImportReport summarizes an import run.
type ImportReport struct {
	Imported []string
	Skipped  []string
	Failed   map[string]error
}

func (r ImportReport) String() string {
	return fmt.Sprintf("imported %d, skipped %d, failed %d", len(r.Imported), len(r.Skipped), len(r.Failed))
}

// ImportFromGhost copies recipe posts into the catalog. Posts whose title
// matches an existing recipe name are skipped, so the import can be rerun.
func (a *App) ImportFromGhost(ctx context.Context, tag string) (ImportReport, error) {
	report := ImportReport{Failed: map[string]error{}}
	if a.ghostClient == nil {
		return report, fmt.Errorf("ghost is not configured")
	}

	posts, err := a.ghostClient.FetchPosts(ctx, tag)
	if err != nil {
		return report, fmt.Errorf("failed to fetch recipes from ghost: %w", err)
	}
	a.logger.Info("fetched ghost posts", zap.Int("count", len(posts)), zap.String("tag", tag))

	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		exists, err := a.hasRecipe(ctx, post.Title)
		if err != nil {
			return report, err
		}
		if exists {
			a.logger.Debug("recipe already imported", zap.String("title", post.Title))
			report.Skipped = append(report.Skipped, post.Title)
			continue
		}

		rec, err := recipe.FromHTML(post.Title, post.HTML)
		if err == nil {
			_, err = a.recipes.Create(ctx, rec)
		}
		if err != nil {
			a.logger.Warn("failed to import post", zap.String("post", post.ID), zap.String("title", post.Title), zap.Error(err))
			report.Failed[post.Title] = err
			continue
		}
		report.Imported = append(report.Imported, post.Title)
	}

	a.logger.Info("ghost import complete", zap.Stringer("report", report))
	return report, nil
}

func (a *App) hasRecipe(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	f := recipe.DefaultFilter()
	f.Search = &recipe.Search{Type: recipe.SearchName, Query: name}
	found, err := a.recipes.List(ctx, f)
	if err != nil {
		return false, fmt.Errorf("failed to look up recipe %q: %w", name, err)
	}
	for _, r := range found {
		if r.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// PublishRecipe posts a stored recipe to Ghost, as a draft unless publish is set.
func (a *App) PublishRecipe(ctx context.Context, id string, publish bool) (*ghost.Post, error) {
	if a.ghostClient == nil {
		return nil, fmt.Errorf("ghost is not configured")
	}
	rec, err := a.recipes.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	tags := []string{RecipeTag}
	if rec.Category != "" {
		tags = append(tags, rec.Category)
	}
	post, err := a.ghostClient.CreatePost(ctx, rec.Name, recipe.ToHTML(rec), tags, publish)
	if err != nil {
		return nil, fmt.Errorf("failed to save to ghost: %w", err)
	}
	a.logger.Info("published recipe", zap.String("recipe", rec.ID), zap.String("post", post.ID), zap.Bool("live", publish))
	return post, nil
}

// ClipURL extracts the recipe at url and stores it.
func (a *App) ClipURL(ctx context.Context, url string) (recipe.Recipe, error) {
	if a.recipeClipper == nil {
		return recipe.Recipe{}, shared.Validation("レシピの取り込みは設定されていません")
	}
	rec, err := a.recipeClipper.Clip(ctx, url)
	if err != nil {
		return recipe.Recipe{}, err
	}
	created, err := a.recipes.Create(ctx, rec)
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("failed to save clipped recipe: %w", err)
	}
	a.logger.Info("clipped recipe", zap.String("url", url), zap.String("recipe", created.ID), zap.String("name", created.Name))
	return created, nil
}
