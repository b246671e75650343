package menu

import (
	"context"
	"database/sql"
	"errors"

	"meal-calendar/internal/calday"
	"meal-calendar/internal/database"
	"meal-calendar/internal/shared"
)

const (
	msgDuplicateDate  = "この日付には既に献立が登録されています"
	msgMenuNotFound   = "献立が見つかりません"
	msgRecipeNotFound = "レシピが見つかりません"
)

// Repository stores menu entries. The UNIQUE(date) column constraint is what
// keeps one entry per day; nothing here checks for an existing row first.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Insert stores a new entry.
func (r *Repository) Insert(ctx context.Context, e Entry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return shared.Transport("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if e.RecipeID != "" {
		if err := recipeExists(ctx, tx, e.RecipeID); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO menus (id, date, recipe_id, memo, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Date, database.NullString(e.RecipeID), database.NullString(e.Memo), database.FormatTime(e.CreatedAt),
	)
	if database.IsUniqueViolation(err) {
		return shared.Conflict(msgDuplicateDate)
	}
	if err != nil {
		return shared.Transport("failed to insert menu", err)
	}

	if err := tx.Commit(); err != nil {
		return shared.Transport("failed to commit menu insert", err)
	}
	return nil
}

// Update applies req to the entry with the given id in one statement.
func (r *Repository) Update(ctx context.Context, id string, req UpdateRequest) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return shared.Transport("failed to begin transaction", err)
	}
	defer tx.Rollback()

	var recipeID sql.NullString
	if req.RecipeID != nil {
		if err := recipeExists(ctx, tx, *req.RecipeID); err != nil {
			return err
		}
		recipeID = sql.NullString{String: *req.RecipeID, Valid: true}
	}
	var date sql.NullString
	if req.Date != nil {
		date = sql.NullString{String: req.Date.String(), Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE menus SET recipe_id = COALESCE(?, recipe_id), date = COALESCE(?, date) WHERE id = ?`,
		recipeID, date, id,
	)
	if database.IsUniqueViolation(err) {
		return shared.Conflict(msgDuplicateDate)
	}
	if err != nil {
		return shared.Transport("failed to update menu", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.NotFound(msgMenuNotFound)
	}

	if err := tx.Commit(); err != nil {
		return shared.Transport("failed to commit menu update", err)
	}
	return nil
}

// Delete removes the entry with the given id. The referenced recipe is untouched.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM menus WHERE id = ?`, id)
	if err != nil {
		return shared.Transport("failed to delete menu", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shared.NotFound(msgMenuNotFound)
	}
	return nil
}

// Get retrieves an entry by its ID.
func (r *Repository) Get(ctx context.Context, id string) (Entry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, date, recipe_id, memo, created_at FROM menus WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, shared.NotFound(msgMenuNotFound)
	}
	if err != nil {
		return Entry{}, shared.Transport("failed to get menu", err)
	}
	return e, nil
}

// ListInRange returns the entries inside rng, ascending by date.
func (r *Repository) ListInRange(ctx context.Context, rng calday.Range) ([]Entry, error) {
	query := `SELECT id, date, recipe_id, memo, created_at FROM menus WHERE 1 = 1`
	var args []any
	// Dates are stored as YYYY-MM-DD, so text comparison is date order.
	if rng.Start != nil {
		query += ` AND date >= ?`
		args = append(args, rng.Start.String())
	}
	if rng.End != nil {
		query += ` AND date <= ?`
		args = append(args, rng.End.String())
	}
	query += ` ORDER BY date ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, shared.Transport("failed to list menus", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, shared.Transport("failed to read menu row", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Transport("failed to iterate menus", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e              Entry
		recipeID, memo sql.NullString
		createdAt      string
	)
	if err := s.Scan(&e.ID, &e.Date, &recipeID, &memo, &createdAt); err != nil {
		return Entry{}, err
	}
	e.RecipeID = recipeID.String
	e.Memo = memo.String

	var err error
	if e.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func recipeExists(ctx context.Context, tx *sql.Tx, id string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM recipes WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return shared.NotFound(msgRecipeNotFound)
	}
	if err != nil {
		return shared.Transport("failed to look up recipe", err)
	}
	return nil
}
