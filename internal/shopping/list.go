// Package shopping derives a shopping list from the menus of a date range.
package shopping

import (
	"strings"

	"meal-calendar/internal/menu"
)

// Item is one ingredient to buy, with every quantity that asked for it.
type Item struct {
	Name       string   `json:"name"`
	Quantity   string   `json:"quantity"`
	Quantities []string `json:"quantities"`
	Recipes    []string `json:"recipes"`
}

// List is the shopping list for a range of days.
type List struct {
	Items []Item `json:"items"`
}

// Build aggregates the ingredients of every recipe assigned in entries, in
// first-seen order. Ingredients are matched by trimmed name; memo-only entries
// contribute nothing.
func Build(entries []menu.Entry) List {
	var list List
	pos := make(map[string]int)

	for _, e := range entries {
		if e.Recipe == nil {
			continue
		}
		for _, ing := range e.Recipe.Ingredients {
			name := strings.TrimSpace(ing.Name)
			if name == "" {
				continue
			}
			i, ok := pos[name]
			if !ok {
				i = len(list.Items)
				pos[name] = i
				list.Items = append(list.Items, Item{Name: name})
			}
			item := &list.Items[i]
			if q := strings.TrimSpace(ing.Quantity); q != "" {
				item.Quantities = append(item.Quantities, q)
			}
			if !contains(item.Recipes, e.Recipe.Name) {
				item.Recipes = append(item.Recipes, e.Recipe.Name)
			}
		}
	}

	for i := range list.Items {
		list.Items[i].Quantity = strings.Join(list.Items[i].Quantities, " + ")
	}
	return list
}

// Lines renders the list as "name quantity" lines.
func (l List) Lines() []string {
	lines := make([]string, len(l.Items))
	for i, it := range l.Items {
		if it.Quantity == "" {
			lines[i] = it.Name
			continue
		}
		lines[i] = it.Name + " " + it.Quantity
	}
	return lines
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
