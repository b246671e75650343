package recipe

import (
	"strings"
	"time"

	"meal-calendar/internal/shared"
)

// Suggested categories. Category is an open string; these are the ones the
// UI offers by default.
const (
	CategoryJapanese = "和食"
	CategoryWestern  = "洋食"
	CategoryChinese  = "中華"
	CategoryOther    = "その他"
)

// Categories lists the suggested categories in display order.
var Categories = []string{CategoryJapanese, CategoryWestern, CategoryChinese, CategoryOther}

// Ingredient is a name + free-text quantity pair.
type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// Step is one instruction. Order is 1-based and contiguous.
type Step struct {
	Order       int    `json:"order"`
	Description string `json:"description"`
}

// Recipe is a stored recipe.
type Recipe struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Category    string       `json:"category"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []Step       `json:"steps"`
	CookingTime *int         `json:"cookingTime,omitempty"` // minutes
	Servings    *int         `json:"servings,omitempty"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	Tags        string       `json:"tags,omitempty"`
	Memo        string       `json:"memo,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Normalize trims text fields, drops blank ingredients and steps, and
// renumbers the remaining steps.
func (r *Recipe) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.TrimSpace(r.Category)
	r.Tags = strings.TrimSpace(r.Tags)
	r.Memo = strings.TrimSpace(r.Memo)
	r.ImageURL = strings.TrimSpace(r.ImageURL)

	ingredients := r.Ingredients[:0:0]
	for _, ing := range r.Ingredients {
		ing.Name = strings.TrimSpace(ing.Name)
		ing.Quantity = strings.TrimSpace(ing.Quantity)
		if ing.Name == "" {
			continue
		}
		ingredients = append(ingredients, ing)
	}
	r.Ingredients = ingredients

	steps := r.Steps[:0:0]
	for _, s := range r.Steps {
		s.Description = strings.TrimSpace(s.Description)
		if s.Description == "" {
			continue
		}
		steps = append(steps, s)
	}
	r.Steps = RenumberSteps(steps)
}

// Validate checks the fields required on create and update.
func (r Recipe) Validate() error {
	switch {
	case r.Name == "":
		return shared.Validation("name is required")
	case r.Category == "":
		return shared.Validation("category is required")
	case len(r.Ingredients) == 0:
		return shared.Validation("at least one ingredient is required")
	case len(r.Steps) == 0:
		return shared.Validation("at least one step is required")
	}
	if r.CookingTime != nil && *r.CookingTime < 0 {
		return shared.Validation("cookingTime must not be negative")
	}
	if r.Servings != nil && *r.Servings < 0 {
		return shared.Validation("servings must not be negative")
	}
	return nil
}

// RenumberSteps assigns orders 1..N following the slice order.
func RenumberSteps(steps []Step) []Step {
	for i := range steps {
		steps[i].Order = i + 1
	}
	return steps
}

// RemoveStep drops the step at index i and renumbers the rest.
func RemoveStep(steps []Step, i int) []Step {
	if i < 0 || i >= len(steps) {
		return steps
	}
	out := make([]Step, 0, len(steps)-1)
	out = append(out, steps[:i]...)
	out = append(out, steps[i+1:]...)
	return RenumberSteps(out)
}

// TagList splits the free-text tags on commas and whitespace.
func (r Recipe) TagList() []string {
	return strings.FieldsFunc(r.Tags, func(c rune) bool {
		return c == ',' || c == '、' || c == ' ' || c == '\t' || c == '\n'
	})
}
