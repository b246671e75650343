// Package api serves the recipe and menu JSON API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"meal-calendar/internal/calendar"
	"meal-calendar/internal/metrics"
	"meal-calendar/internal/planner"
	"meal-calendar/internal/recipe"

	"go.uber.org/zap"
)

// RecipeStore is the recipe catalog as the API uses it.
type RecipeStore interface {
	Create(ctx context.Context, r recipe.Recipe) (recipe.Recipe, error)
	Update(ctx context.Context, id string, r recipe.Recipe) (recipe.Recipe, error)
	Get(ctx context.Context, id string) (recipe.Recipe, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f recipe.Filter) ([]recipe.Recipe, error)
	Search(ctx context.Context, q recipe.SearchQuery) ([]recipe.Recipe, error)
}

// ImageStore accepts uploaded images.
type ImageStore interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
	Remove(ctx context.Context, url string) error
	Dir() string
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Menus    calendar.EntryStore
	Recipes  RecipeStore
	Images   ImageStore
	Metrics  *metrics.Collectors
	Logger   *zap.Logger
	Location *time.Location
	// Planner serves menu suggestions; nil rotates through the catalog.
	Planner *planner.Planner
	// DataPaths are summed for the disk figure on /health.
	DataPaths []string
}

// Server holds the HTTP handlers.
type Server struct {
	menus     calendar.EntryStore
	recipes   RecipeStore
	images    ImageStore
	metrics   *metrics.Collectors
	logger    *zap.Logger
	loc       *time.Location
	planner   *planner.Planner
	dataPaths []string
	now       func() time.Time
}

// NewServer creates a new Server.
func NewServer(d Deps) *Server {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := d.Metrics
	if m == nil {
		m = metrics.New()
	}
	p := d.Planner
	if p == nil {
		p = planner.NewPlanner(d.Menus, d.Recipes, nil, logger)
	}
	return &Server{
		menus:     d.Menus,
		recipes:   d.Recipes,
		images:    d.Images,
		metrics:   m,
		logger:    logger,
		loc:       loc,
		planner:   p,
		dataPaths: d.DataPaths,
		now:       time.Now,
	}
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/menus", s.listMenus)
	mux.HandleFunc("POST /api/menus", s.createMenu)
	mux.HandleFunc("GET /api/menus/{id}", s.getMenu)
	mux.HandleFunc("PUT /api/menus/{id}", s.updateMenu)
	mux.HandleFunc("DELETE /api/menus/{id}", s.deleteMenu)
	mux.HandleFunc("POST /api/menus/suggest", s.suggestMenus)

	mux.HandleFunc("GET /api/recipes", s.listRecipes)
	mux.HandleFunc("POST /api/recipes", s.createRecipe)
	mux.HandleFunc("GET /api/recipes/search", s.searchRecipes)
	mux.HandleFunc("GET /api/recipes/{id}", s.getRecipe)
	mux.HandleFunc("PUT /api/recipes/{id}", s.updateRecipe)
	mux.HandleFunc("DELETE /api/recipes/{id}", s.deleteRecipe)

	mux.HandleFunc("POST /api/upload", s.upload)

	mux.HandleFunc("GET /api/calendar/month", s.monthCalendar)
	mux.HandleFunc("GET /api/calendar/week", s.weekCalendar)
	mux.HandleFunc("GET /api/calendar.ics", s.exportICS)
	mux.HandleFunc("GET /api/shopping-list", s.shoppingList)

	mux.HandleFunc("GET /health", s.health)
	mux.Handle("GET /metrics", s.metrics.Handler())
	if s.images != nil {
		mux.Handle("GET /images/", noSniff(http.StripPrefix("/images/", http.FileServer(http.Dir(s.images.Dir())))))
	}

	return s.instrument(mux)
}

// noSniff keeps browsers from guessing a content type for stored files.
func noSniff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe runs the API on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server forced to shutdown: %w", err)
	}
	return nil
}
