// Package planner proposes recipes for the open days of a date range, from
// the recipe catalog and the recent menu history.
package planner

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"meal-calendar/internal/calday"
	"meal-calendar/internal/calendar"
	"meal-calendar/internal/llm"
	"meal-calendar/internal/menu"
	"meal-calendar/internal/recipe"
	"meal-calendar/internal/shared"

	"go.uber.org/zap"
)

//go:embed suggest_prompt.md
var suggestPrompt string

var promptTmpl = template.Must(template.New("suggest").Parse(suggestPrompt))

const (
	// MaxDays bounds a single suggestion run.
	MaxDays = 31
	// historyDays is how far back served recipes count as recent.
	historyDays = 14
)

// Suggestion proposes one recipe for one open day.
type Suggestion struct {
	Date       calday.Day `json:"date"`
	RecipeID   string     `json:"recipeId"`
	RecipeName string     `json:"recipeName"`
	Category   string     `json:"category"`
	Note       string     `json:"note,omitempty"`
}

// Planner handles the generation of menu suggestions.
type Planner struct {
	menus   calendar.EntryStore
	recipes calendar.RecipeCatalog
	textGen llm.TextGenerator
	logger  *zap.Logger
}

// NewPlanner creates a new Planner instance. textGen may be nil, in which
// case suggestions rotate through the catalog.
func NewPlanner(menus calendar.EntryStore, recipes calendar.RecipeCatalog, textGen llm.TextGenerator, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{menus: menus, recipes: recipes, textGen: textGen, logger: logger}
}

// Suggest proposes a recipe for every day in rng that has no entry yet. The
// request is free text passed to the language model; without a model it is
// ignored. Nothing is written.
func (p *Planner) Suggest(ctx context.Context, rng calday.Range, request string) ([]Suggestion, error) {
	if rng.Start == nil || rng.End == nil {
		return nil, shared.Validation("開始日と終了日を指定してください")
	}
	if rng.End.Before(*rng.Start) {
		return nil, shared.Validation("終了日は開始日以降にしてください")
	}
	if rng.Start.AddDays(MaxDays - 1).Before(*rng.End) {
		return nil, shared.Validation("提案できるのは %d 日分までです", MaxDays)
	}
	days := rng.Days()

	history := calday.Between(rng.Start.AddDays(-historyDays), *rng.End)
	entries, err := p.menus.ListInRange(ctx, history)
	if err != nil {
		return nil, fmt.Errorf("failed to list menus in %s: %w", history, err)
	}
	catalog, err := p.recipes.List(ctx, recipe.Filter{SortBy: recipe.SortByName, Order: recipe.Asc})
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	if len(catalog) == 0 {
		return nil, shared.Validation("レシピが登録されていません")
	}

	idx := calendar.NewIndex(entries)
	var open []calday.Day
	for _, d := range days {
		if _, ok := idx.Lookup(d); !ok {
			open = append(open, d)
		}
	}
	if len(open) == 0 {
		return []Suggestion{}, nil
	}

	var chosen map[calday.Day]Suggestion
	if p.textGen != nil && strings.TrimSpace(request) != "" {
		chosen, err = p.askModel(ctx, open, entries, catalog, request)
		if err != nil {
			p.logger.Warn("model suggestions failed, rotating catalog", zap.Error(err))
			chosen = nil
		}
	}
	return rotate(open, entries, catalog, chosen), nil
}

// rotate fills every open day not already in chosen, preferring recipes
// served longest ago and a category different from the previous day.
func rotate(open []calday.Day, entries []menu.Entry, catalog []recipe.Recipe, chosen map[calday.Day]Suggestion) []Suggestion {
	lastServed := make(map[string]calday.Day)
	served := append([]menu.Entry(nil), entries...)
	sort.Slice(served, func(i, j int) bool { return served[i].Date.Before(served[j].Date) })
	for _, e := range served {
		if e.RecipeID != "" {
			lastServed[e.RecipeID] = e.Date
		}
	}
	categoryOn := make(map[calday.Day]string)
	for _, e := range served {
		if e.Recipe != nil {
			categoryOn[e.Date] = e.Recipe.Category
		}
	}

	out := make([]Suggestion, 0, len(open))
	for _, day := range open {
		if s, ok := chosen[day]; ok {
			out = append(out, s)
			lastServed[s.RecipeID] = day
			categoryOn[day] = s.Category
			continue
		}

		prevCategory := categoryOn[day.AddDays(-1)]
		best := -1
		for i, r := range catalog {
			if best < 0 || better(r, catalog[best], lastServed, prevCategory) {
				best = i
			}
		}
		r := catalog[best]
		out = append(out, Suggestion{Date: day, RecipeID: r.ID, RecipeName: r.Name, Category: r.Category})
		lastServed[r.ID] = day
		categoryOn[day] = r.Category
	}
	return out
}

// better reports whether a should be picked over b.
func better(a, b recipe.Recipe, lastServed map[string]calday.Day, prevCategory string) bool {
	la, aServed := lastServed[a.ID]
	lb, bServed := lastServed[b.ID]
	if aServed != bServed {
		return !aServed
	}
	if aServed && la != lb {
		return la.Before(lb)
	}
	aRepeats := prevCategory != "" && a.Category == prevCategory
	bRepeats := prevCategory != "" && b.Category == prevCategory
	if aRepeats != bRepeats {
		return !aRepeats
	}
	return false
}

type promptData struct {
	Request string
	Days    []calday.Day
	Recent  []recentMeal
	Recipes []recipe.Recipe
}

type recentMeal struct {
	Date calday.Day
	Name string
}

type modelPlan struct {
	Plan []struct {
		Date     string `json:"date"`
		RecipeID string `json:"recipe_id"`
		Note     string `json:"note"`
	} `json:"plan"`
}

// askModel lets the language model choose. Picks for days that are not
// open or recipes that are not in the catalog are dropped.
func (p *Planner) askModel(ctx context.Context, open []calday.Day, entries []menu.Entry, catalog []recipe.Recipe, request string) (map[calday.Day]Suggestion, error) {
	data := promptData{Request: strings.TrimSpace(request), Days: open, Recipes: catalog}
	for _, e := range entries {
		data.Recent = append(data.Recent, recentMeal{Date: e.Date, Name: e.Title()})
	}

	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	resp, err := p.textGen.GenerateContent(ctx, buf.String())
	if err != nil {
		return nil, fmt.Errorf("failed to generate suggestions: %w", err)
	}

	var plan modelPlan
	if err := json.Unmarshal([]byte(stripFences(resp)), &plan); err != nil {
		return nil, fmt.Errorf("failed to parse suggestions JSON: %w. Response: %s", err, resp)
	}

	isOpen := make(map[calday.Day]bool, len(open))
	for _, d := range open {
		isOpen[d] = true
	}
	byID := make(map[string]recipe.Recipe, len(catalog))
	for _, r := range catalog {
		byID[r.ID] = r
	}

	chosen := make(map[calday.Day]Suggestion)
	for _, item := range plan.Plan {
		d, err := calday.Parse(item.Date, nil)
		if err != nil || !isOpen[d] {
			continue
		}
		r, ok := byID[item.RecipeID]
		if !ok {
			p.logger.Debug("model picked an unknown recipe", zap.String("recipe_id", item.RecipeID))
			continue
		}
		chosen[d] = Suggestion{Date: d, RecipeID: r.ID, RecipeName: r.Name, Category: r.Category, Note: item.Note}
	}
	return chosen, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Apply assigns every suggestion. Days that were filled in the meantime are
// skipped and reported; any other failure stops the run.
func (p *Planner) Apply(ctx context.Context, suggestions []Suggestion) ([]menu.Entry, []calday.Day, error) {
	var (
		created []menu.Entry
		skipped []calday.Day
	)
	for _, s := range suggestions {
		e, err := p.menus.Create(ctx, menu.CreateRequest{Date: s.Date, RecipeID: s.RecipeID})
		if shared.IsConflict(err) {
			skipped = append(skipped, s.Date)
			continue
		}
		if err != nil {
			return created, skipped, err
		}
		created = append(created, e)
	}
	p.logger.Info("menu suggestions applied", zap.Int("created", len(created)), zap.Int("skipped", len(skipped)))
	return created, skipped, nil
}
