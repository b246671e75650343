// Package client talks to the meal-calendar JSON API. Menus and Recipes
// satisfy the calendar collaborators, so a front-end can drive the
// controller against a remote server exactly as it would against the
// database.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"meal-calendar/internal/calday"
	"meal-calendar/internal/calendar"
	"meal-calendar/internal/menu"
	"meal-calendar/internal/recipe"
	"meal-calendar/internal/shared"
	"meal-calendar/internal/shopping"
)

// Client is a thin HTTP client for the API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Menus returns the menu entry endpoints.
func (c *Client) Menus() *Menus { return &Menus{c: c} }

// Recipes returns the recipe endpoints.
func (c *Client) Recipes() *Recipes { return &Recipes{c: c} }

var (
	_ calendar.EntryStore    = (*Menus)(nil)
	_ calendar.RecipeCatalog = (*Recipes)(nil)
)

type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// do sends a JSON request and decodes a JSON response into out. Error
// responses come back as *shared.Error with the server's kind restored.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return shared.Transport("サーバーに接続できません", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return shared.Transport("failed to decode response", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var eb errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&eb)
	msg := eb.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch shared.Kind(eb.Reason) {
	case shared.KindValidation, shared.KindConflict, shared.KindNotFound:
		return &shared.Error{Kind: shared.Kind(eb.Reason), Message: msg}
	}
	if resp.StatusCode == http.StatusNotFound {
		return &shared.Error{Kind: shared.KindNotFound, Message: msg}
	}
	if resp.StatusCode < 500 {
		return &shared.Error{Kind: shared.KindValidation, Message: msg}
	}
	return shared.Transport(msg, fmt.Errorf("api error: status %d", resp.StatusCode))
}

func rangeQuery(rng calday.Range) url.Values {
	q := url.Values{}
	if rng.Start != nil {
		q.Set("startDate", rng.Start.String())
	}
	if rng.End != nil {
		q.Set("endDate", rng.End.String())
	}
	return q
}

// Menus is the remote menu entry store.
type Menus struct {
	c *Client
}

type menuBody struct {
	Date     string  `json:"date,omitempty"`
	RecipeID *string `json:"recipeId,omitempty"`
	Memo     string  `json:"memo,omitempty"`
}

// ListInRange lists the entries whose date falls inside rng.
func (m *Menus) ListInRange(ctx context.Context, rng calday.Range) ([]menu.Entry, error) {
	var entries []menu.Entry
	if err := m.c.do(ctx, http.MethodGet, "/api/menus", rangeQuery(rng), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Get fetches one entry.
func (m *Menus) Get(ctx context.Context, id string) (menu.Entry, error) {
	var e menu.Entry
	err := m.c.do(ctx, http.MethodGet, "/api/menus/"+url.PathEscape(id), nil, nil, &e)
	return e, err
}

// Create assigns a day.
func (m *Menus) Create(ctx context.Context, req menu.CreateRequest) (menu.Entry, error) {
	body := menuBody{Memo: req.Memo}
	if !req.Date.IsZero() {
		body.Date = req.Date.String()
	}
	if req.RecipeID != "" {
		body.RecipeID = &req.RecipeID
	}
	var e menu.Entry
	err := m.c.do(ctx, http.MethodPost, "/api/menus", nil, body, &e)
	return e, err
}

// Update changes the recipe or the date of an entry.
func (m *Menus) Update(ctx context.Context, id string, req menu.UpdateRequest) (menu.Entry, error) {
	body := menuBody{RecipeID: req.RecipeID}
	if req.Date != nil {
		body.Date = req.Date.String()
	}
	var e menu.Entry
	err := m.c.do(ctx, http.MethodPut, "/api/menus/"+url.PathEscape(id), nil, body, &e)
	return e, err
}

// Delete removes an entry.
func (m *Menus) Delete(ctx context.Context, id string) error {
	return m.c.do(ctx, http.MethodDelete, "/api/menus/"+url.PathEscape(id), nil, nil, nil)
}

// ShoppingList fetches the aggregated ingredients for rng.
func (m *Menus) ShoppingList(ctx context.Context, rng calday.Range) (shopping.List, error) {
	var list shopping.List
	err := m.c.do(ctx, http.MethodGet, "/api/shopping-list", rangeQuery(rng), nil, &list)
	return list, err
}

// Recipes is the remote recipe catalog.
type Recipes struct {
	c *Client
}

func filterQuery(f recipe.Filter) url.Values {
	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.SortBy != "" {
		q.Set("sortBy", string(f.SortBy))
	}
	if f.Order != "" {
		q.Set("order", string(f.Order))
	}
	if f.Search != nil {
		q.Set("search", f.Search.Query)
		q.Set("searchType", string(f.Search.Type))
	}
	return q
}

// List lists recipes matching f.
func (r *Recipes) List(ctx context.Context, f recipe.Filter) ([]recipe.Recipe, error) {
	var out []recipe.Recipe
	if err := r.c.do(ctx, http.MethodGet, "/api/recipes", filterQuery(f), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Search runs the combined name/ingredient search.
func (r *Recipes) Search(ctx context.Context, sq recipe.SearchQuery) ([]recipe.Recipe, error) {
	q := url.Values{}
	if sq.Q != "" {
		q.Set("q", sq.Q)
	}
	if sq.Category != "" {
		q.Set("category", sq.Category)
	}
	if sq.Tags != "" {
		q.Set("tags", sq.Tags)
	}
	var out []recipe.Recipe
	if err := r.c.do(ctx, http.MethodGet, "/api/recipes/search", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one recipe.
func (r *Recipes) Get(ctx context.Context, id string) (recipe.Recipe, error) {
	var rec recipe.Recipe
	err := r.c.do(ctx, http.MethodGet, "/api/recipes/"+url.PathEscape(id), nil, nil, &rec)
	return rec, err
}

// Create stores a new recipe.
func (r *Recipes) Create(ctx context.Context, rec recipe.Recipe) (recipe.Recipe, error) {
	var out recipe.Recipe
	err := r.c.do(ctx, http.MethodPost, "/api/recipes", nil, rec, &out)
	return out, err
}
