package calendar

import (
	"context"
	"fmt"

	"meal-calendar/internal/calday"
	"meal-calendar/internal/menu"
	"meal-calendar/internal/recipe"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EntryStore is the menu entry collaborator.
type EntryStore interface {
	ListInRange(ctx context.Context, rng calday.Range) ([]menu.Entry, error)
	Get(ctx context.Context, id string) (menu.Entry, error)
	Create(ctx context.Context, req menu.CreateRequest) (menu.Entry, error)
	Update(ctx context.Context, id string, req menu.UpdateRequest) (menu.Entry, error)
	Delete(ctx context.Context, id string) error
}

// RecipeCatalog is the recipe collaborator.
type RecipeCatalog interface {
	List(ctx context.Context, f recipe.Filter) ([]recipe.Recipe, error)
	Get(ctx context.Context, id string) (recipe.Recipe, error)
}

var (
	_ EntryStore    = (*menu.Service)(nil)
	_ RecipeCatalog = (*recipe.Repository)(nil)
)

// Loader executes controller commands and turns their outcomes into events.
type Loader struct {
	entries EntryStore
	recipes RecipeCatalog
	logger  *zap.Logger
}

// NewLoader creates a new Loader.
func NewLoader(entries EntryStore, recipes RecipeCatalog, logger *zap.Logger) *Loader {
	return &Loader{entries: entries, recipes: recipes, logger: logger}
}

// Run performs cmd and returns the event that reports its result.
func (l *Loader) Run(ctx context.Context, cmd Command) Event {
	switch cmd := cmd.(type) {
	case Fetch:
		return l.fetch(ctx, cmd)
	case Create:
		_, err := l.entries.Create(ctx, cmd.Req)
		return l.mutationDone("create", err)
	case Update:
		_, err := l.entries.Update(ctx, cmd.ID, cmd.Req)
		return l.mutationDone("update", err)
	case Delete:
		return l.mutationDone("delete", l.entries.Delete(ctx, cmd.ID))
	}
	panic(fmt.Sprintf("calendar: unknown command %T", cmd))
}

func (l *Loader) fetch(ctx context.Context, cmd Fetch) Event {
	var (
		entries []menu.Entry
		recipes []recipe.Recipe
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = l.entries.ListInRange(gctx, cmd.Range)
		if err != nil {
			return fmt.Errorf("failed to list menus in %s: %w", cmd.Range, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		recipes, err = l.recipes.List(gctx, recipe.DefaultFilter())
		if err != nil {
			return fmt.Errorf("failed to list recipes: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		l.logger.Warn("calendar fetch failed", zap.Uint64("seq", cmd.Seq), zap.Error(err))
		return FetchFailed{Seq: cmd.Seq, Err: err}
	}
	return FetchDone{Seq: cmd.Seq, Entries: entries, Recipes: recipes}
}

func (l *Loader) mutationDone(op string, err error) Event {
	if err != nil {
		l.logger.Info("calendar mutation rejected", zap.String("op", op), zap.Error(err))
	}
	return MutationDone{Err: err}
}

// Dispatch applies ev and runs every resulting command to completion,
// feeding each outcome back through Reduce. It suits front-ends that handle
// one request at a time.
func (l *Loader) Dispatch(ctx context.Context, s State, ev Event) State {
	queue := []Event{ev}
	for len(queue) > 0 {
		var cmds []Command
		s, cmds = Reduce(s, queue[0])
		queue = queue[1:]
		for _, cmd := range cmds {
			queue = append(queue, l.Run(ctx, cmd))
		}
	}
	return s
}

// Start mounts s and waits for the first fetch.
func (l *Loader) Start(ctx context.Context, s State) State {
	s, cmds := Mount(s)
	for _, cmd := range cmds {
		s = l.Dispatch(ctx, s, l.Run(ctx, cmd))
	}
	return s
}
