package menu

import (
	"context"
	"fmt"
	"time"

	"meal-calendar/internal/calday"
	"meal-calendar/internal/recipe"
	"meal-calendar/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecipeLookup resolves recipe references for a batch of entries.
type RecipeLookup interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]recipe.Recipe, error)
}

// MutationRecorder observes the outcome of every create, update and delete.
type MutationRecorder interface {
	RecordMutation(op string, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordMutation(string, error) {}

// Service is the menu assignment service.
type Service struct {
	repo     *Repository
	recipes  RecipeLookup
	recorder MutationRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets the mutation recorder.
func WithRecorder(r MutationRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// NewService creates a new Service.
func NewService(repo *Repository, recipes RecipeLookup, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		recipes:  recipes,
		recorder: nopRecorder{},
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create assigns a recipe or memo to an empty day.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Entry, error) {
	e, err := s.create(ctx, req)
	s.recorder.RecordMutation("create", err)
	return e, err
}

func (s *Service) create(ctx context.Context, req CreateRequest) (Entry, error) {
	req.normalize()
	if req.RecipeID == "" && req.Memo == "" {
		return Entry{}, shared.Validation("レシピまたはメモを入力してください")
	}
	if req.Date.IsZero() {
		return Entry{}, shared.Validation("日付は必須です")
	}

	e := Entry{
		ID:        uuid.NewString(),
		Date:      req.Date,
		RecipeID:  req.RecipeID,
		Memo:      req.Memo,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("failed to create menu for %s: %w", e.Date, err)
	}
	s.logger.Info("menu created", zap.String("id", e.ID), zap.Stringer("date", e.Date))

	return s.attachOne(ctx, e)
}

// Update changes the recipe and/or date of an existing entry.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (Entry, error) {
	e, err := s.update(ctx, id, req)
	s.recorder.RecordMutation("update", err)
	return e, err
}

func (s *Service) update(ctx context.Context, id string, req UpdateRequest) (Entry, error) {
	req.normalize()
	if req.RecipeID == nil && req.Date == nil {
		return Entry{}, shared.Validation("更新する項目を指定してください")
	}

	if err := s.repo.Update(ctx, id, req); err != nil {
		return Entry{}, fmt.Errorf("failed to update menu %s: %w", id, err)
	}
	s.logger.Info("menu updated", zap.String("id", id))

	return s.Get(ctx, id)
}

// Delete removes an entry. Deleting an unknown id is a NotFound error.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	s.recorder.RecordMutation("delete", err)
	if err != nil {
		return fmt.Errorf("failed to delete menu %s: %w", id, err)
	}
	s.logger.Info("menu deleted", zap.String("id", id))
	return nil
}

// Get retrieves one entry with its recipe attached.
func (s *Service) Get(ctx context.Context, id string) (Entry, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	return s.attachOne(ctx, e)
}

// ListInRange returns the entries in rng, ascending by date, with recipes attached.
func (s *Service) ListInRange(ctx context.Context, rng calday.Range) ([]Entry, error) {
	entries, err := s.repo.ListInRange(ctx, rng)
	if err != nil {
		return nil, err
	}
	if err := s.attach(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Service) attachOne(ctx context.Context, e Entry) (Entry, error) {
	entries := []Entry{e}
	if err := s.attach(ctx, entries); err != nil {
		return Entry{}, err
	}
	return entries[0], nil
}

func (s *Service) attach(ctx context.Context, entries []Entry) error {
	var ids []string
	seen := make(map[string]bool)
	for _, e := range entries {
		if e.RecipeID != "" && !seen[e.RecipeID] {
			seen[e.RecipeID] = true
			ids = append(ids, e.RecipeID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	recipes, err := s.recipes.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to attach recipes: %w", err)
	}
	for i := range entries {
		if r, ok := recipes[entries[i].RecipeID]; ok {
			entries[i].Recipe = &r
		}
	}
	return nil
}
