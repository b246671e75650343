package menu

import (
	"strings"
	"time"

	"meal-calendar/internal/calday"
	"meal-calendar/internal/recipe"
)

// Entry assigns a recipe, a memo, or both to one calendar day.
type Entry struct {
	ID        string         `json:"id"`
	Date      calday.Day     `json:"date"`
	RecipeID  string         `json:"recipeId,omitempty"`
	Recipe    *recipe.Recipe `json:"recipe,omitempty"`
	Memo      string         `json:"memo,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Title is the short label shown in a calendar cell.
func (e Entry) Title() string {
	if e.Recipe != nil {
		return e.Recipe.Name
	}
	return e.Memo
}

// CreateRequest holds the fields accepted when assigning a day.
type CreateRequest struct {
	Date     calday.Day `json:"date"`
	RecipeID string     `json:"recipeId,omitempty"`
	Memo     string     `json:"memo,omitempty"`
}

func (r *CreateRequest) normalize() {
	r.RecipeID = strings.TrimSpace(r.RecipeID)
	r.Memo = strings.TrimSpace(r.Memo)
}

// UpdateRequest changes the recipe, the date, or both. Nil fields are left alone.
type UpdateRequest struct {
	RecipeID *string     `json:"recipeId,omitempty"`
	Date     *calday.Day `json:"date,omitempty"`
}

func (r *UpdateRequest) normalize() {
	if r.RecipeID != nil {
		id := strings.TrimSpace(*r.RecipeID)
		if id == "" {
			r.RecipeID = nil
		} else {
			r.RecipeID = &id
		}
	}
	if r.Date != nil && r.Date.IsZero() {
		r.Date = nil
	}
}
