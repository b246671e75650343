package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"meal-calendar/internal/database"
	"meal-calendar/internal/shared"

	"github.com/google/uuid"
)

const selectColumns = `id, name, category, ingredients, steps, cooking_time, servings,
	image_url, tags, memo, created_at, updated_at`

// Repository is a database-backed repository for recipes.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d, now: time.Now}
}

// Create validates and inserts a new recipe, assigning its ID and timestamps.
func (r *Repository) Create(ctx context.Context, rec Recipe) (Recipe, error) {
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return Recipe{}, err
	}

	rec.ID = uuid.NewString()
	rec.CreatedAt = r.now().UTC()
	rec.UpdatedAt = rec.CreatedAt

	ingredients, steps, err := encodeLists(rec)
	if err != nil {
		return Recipe{}, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO recipes (id, name, category, ingredients, steps, cooking_time, servings,
			image_url, tags, memo, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Category, ingredients, steps,
		database.NullInt(rec.CookingTime), database.NullInt(rec.Servings),
		database.NullString(rec.ImageURL), database.NullString(rec.Tags), database.NullString(rec.Memo),
		database.FormatTime(rec.CreatedAt), database.FormatTime(rec.UpdatedAt),
	)
	if err != nil {
		return Recipe{}, shared.Transport("failed to insert recipe", err)
	}
	return rec, nil
}

// Update replaces every editable field of an existing recipe.
func (r *Repository) Update(ctx context.Context, id string, rec Recipe) (Recipe, error) {
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return Recipe{}, err
	}

	ingredients, steps, err := encodeLists(rec)
	if err != nil {
		return Recipe{}, err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE recipes SET name = ?, category = ?, ingredients = ?, steps = ?, cooking_time = ?,
			servings = ?, image_url = ?, tags = ?, memo = ?, updated_at = ?
		WHERE id = ?`,
		rec.Name, rec.Category, ingredients, steps,
		database.NullInt(rec.CookingTime), database.NullInt(rec.Servings),
		database.NullString(rec.ImageURL), database.NullString(rec.Tags), database.NullString(rec.Memo),
		database.FormatTime(r.now()), id,
	)
	if err != nil {
		return Recipe{}, shared.Transport("failed to update recipe", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Recipe{}, shared.NotFound("recipe %s not found", id)
	}
	return r.Get(ctx, id)
}

// Get retrieves a recipe by its ID.
func (r *Repository) Get(ctx context.Context, id string) (Recipe, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM recipes WHERE id = ?`, id)
	rec, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Recipe{}, shared.NotFound("recipe %s not found", id)
	}
	if err != nil {
		return Recipe{}, shared.Transport("failed to get recipe", err)
	}
	return rec, nil
}

// GetByIDs retrieves the recipes with the given IDs, keyed by ID. Unknown IDs are skipped.
func (r *Repository) GetByIDs(ctx context.Context, ids []string) (map[string]Recipe, error) {
	out := make(map[string]Recipe, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM recipes WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, shared.Transport("failed to get recipes by IDs", err)
	}
	recipes, err := collect(rows)
	if err != nil {
		return nil, err
	}
	for _, rec := range recipes {
		out[rec.ID] = rec
	}
	return out, nil
}

// Delete removes a recipe. Menus that referenced it keep their date and memo
// with the reference cleared.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return shared.Transport("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE menus SET recipe_id = NULL WHERE recipe_id = ?`, id); err != nil {
		return shared.Transport("failed to detach menus from recipe", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return shared.Transport("failed to delete recipe", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.NotFound("recipe %s not found", id)
	}
	if err := tx.Commit(); err != nil {
		return shared.Transport("failed to commit recipe delete", err)
	}
	return nil
}

// List retrieves recipes matching f.
func (r *Repository) List(ctx context.Context, f Filter) ([]Recipe, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Search != nil {
		col := map[SearchType]string{
			SearchName:        "name",
			SearchTags:        "tags",
			SearchIngredients: "ingredients",
		}[f.Search.Type]
		if col == "" {
			return nil, shared.Validation("unknown searchType %q", f.Search.Type)
		}
		where = append(where, col+` LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(f.Search.Query))
	}

	query := `SELECT ` + selectColumns + ` FROM recipes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY " + orderClause(f)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, shared.Transport("failed to list recipes", err)
	}
	return collect(rows)
}

// Search runs the combined name-or-ingredients query, newest first.
func (r *Repository) Search(ctx context.Context, q SearchQuery) ([]Recipe, error) {
	var (
		where []string
		args  []any
	)
	if q.Q != "" {
		where = append(where, `(name LIKE ? ESCAPE '\' OR ingredients LIKE ? ESCAPE '\')`)
		args = append(args, likePattern(q.Q), likePattern(q.Q))
	}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.Tags != "" {
		where = append(where, `tags LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(q.Tags))
	}

	query := `SELECT ` + selectColumns + ` FROM recipes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, shared.Transport("failed to search recipes", err)
	}
	return collect(rows)
}

// Count returns the number of recipes in the database.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&n); err != nil {
		return 0, shared.Transport("failed to count recipes", err)
	}
	return n, nil
}

func orderClause(f Filter) string {
	col := "created_at"
	switch f.SortBy {
	case SortByName:
		col = "name"
	case SortByCategory:
		col = "category"
	}
	dir := "DESC"
	if f.Order == Asc {
		dir = "ASC"
	}
	// id breaks ties so the order is stable across calls.
	return col + " " + dir + ", id " + dir
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func encodeLists(rec Recipe) (string, string, error) {
	ingredients, err := json.Marshal(rec.Ingredients)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	steps, err := json.Marshal(rec.Steps)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal steps: %w", err)
	}
	return string(ingredients), string(steps), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecipe(s scanner) (Recipe, error) {
	var (
		rec                  Recipe
		ingredients, steps   string
		cookingTime, serving sql.NullInt64
		imageURL, tags, memo sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&rec.ID, &rec.Name, &rec.Category, &ingredients, &steps, &cookingTime, &serving,
		&imageURL, &tags, &memo, &createdAt, &updatedAt)
	if err != nil {
		return Recipe{}, err
	}

	if err := json.Unmarshal([]byte(ingredients), &rec.Ingredients); err != nil {
		return Recipe{}, fmt.Errorf("failed to unmarshal ingredients for recipe %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(steps), &rec.Steps); err != nil {
		return Recipe{}, fmt.Errorf("failed to unmarshal steps for recipe %s: %w", rec.ID, err)
	}
	rec.CookingTime = database.IntPtr(cookingTime)
	rec.Servings = database.IntPtr(serving)
	rec.ImageURL = imageURL.String
	rec.Tags = tags.String
	rec.Memo = memo.String

	if rec.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return Recipe{}, err
	}
	if rec.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return Recipe{}, err
	}
	return rec, nil
}

func collect(rows *sql.Rows) ([]Recipe, error) {
	defer rows.Close()

	recipes := []Recipe{}
	for rows.Next() {
		rec, err := scanRecipe(rows)
		if err != nil {
			return nil, shared.Transport("failed to read recipe row", err)
		}
		recipes = append(recipes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Transport("failed to iterate recipes", err)
	}
	return recipes, nil
}
