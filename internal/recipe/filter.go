package recipe

import (
	"net/url"
	"strings"

	"meal-calendar/internal/shared"
)

// SortKey is the closed set of recipe orderings.
type SortKey string

const (
	SortByDate     SortKey = "date"
	SortByName     SortKey = "name"
	SortByCategory SortKey = "category"
)

// Order is the sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// SearchType selects the field a free-text search runs against.
type SearchType string

const (
	SearchName        SearchType = "name"
	SearchTags        SearchType = "tags"
	SearchIngredients SearchType = "ingredients"
)

// Search is a free-text query over one field.
type Search struct {
	Type  SearchType
	Query string
}

// Filter is the validated recipe list query.
type Filter struct {
	Category string // empty matches every category
	SortBy   SortKey
	Order    Order
	Search   *Search
}

// DefaultFilter lists everything, newest first.
func DefaultFilter() Filter {
	return Filter{SortBy: SortByDate, Order: Desc}
}

// ParseFilter validates list query parameters once, at the boundary.
// Recognized keys: category, sortBy, order, search, searchType.
func ParseFilter(q url.Values) (Filter, error) {
	f := DefaultFilter()
	f.Category = strings.TrimSpace(q.Get("category"))

	switch s := q.Get("sortBy"); s {
	case "", "createdAt", string(SortByDate):
		f.SortBy = SortByDate
	case string(SortByName), string(SortByCategory):
		f.SortBy = SortKey(s)
	default:
		return Filter{}, shared.Validation("unknown sortBy %q", s)
	}

	switch o := q.Get("order"); o {
	case "":
	case string(Asc), string(Desc):
		f.Order = Order(o)
	default:
		return Filter{}, shared.Validation("unknown order %q", o)
	}

	if query := strings.TrimSpace(q.Get("search")); query != "" {
		st := SearchType(q.Get("searchType"))
		switch st {
		case "":
			st = SearchName
		case SearchName, SearchTags, SearchIngredients:
		default:
			return Filter{}, shared.Validation("unknown searchType %q", st)
		}
		f.Search = &Search{Type: st, Query: query}
	}
	return f, nil
}

// SearchQuery is the combined search: Q matches name or ingredients,
// Category is exact, Tags is a substring of the tag text.
type SearchQuery struct {
	Q        string
	Category string
	Tags     string
}

// ParseSearchQuery reads q, category and tags.
func ParseSearchQuery(q url.Values) SearchQuery {
	return SearchQuery{
		Q:        strings.TrimSpace(q.Get("q")),
		Category: strings.TrimSpace(q.Get("category")),
		Tags:     strings.TrimSpace(q.Get("tags")),
	}
}
