package recipe

import (
	"context"
	"database/sql"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"meal-calendar/internal/database"
	"meal-calendar/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.SQL
}

func intPtr(i int) *int { return &i }

func curry() Recipe {
	return Recipe{
		Name:     "カレー",
		Category: CategoryJapanese,
		Ingredients: []Ingredient{
			{Name: "玉ねぎ", Quantity: "2個"},
			{Name: "じゃがいも", Quantity: "3個"},
		},
		Steps: []Step{
			{Order: 5, Description: "切る"},
			{Order: 9, Description: "煮る"},
		},
		CookingTime: intPtr(40),
		Tags:        "定番, 簡単",
	}
}

func TestRecipe_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Recipe)
	}{
		{"missing name", func(r *Recipe) { r.Name = "  " }},
		{"missing category", func(r *Recipe) { r.Category = "" }},
		{"no ingredients", func(r *Recipe) { r.Ingredients = []Ingredient{{Name: " "}} }},
		{"no steps", func(r *Recipe) { r.Steps = nil }},
		{"negative servings", func(r *Recipe) { r.Servings = intPtr(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := curry()
			tt.mutate(&r)
			r.Normalize()
			assert.True(t, shared.IsValidation(r.Validate()))
		})
	}

	r := curry()
	r.Normalize()
	assert.NoError(t, r.Validate())
}

func TestNormalize_RenumbersSteps(t *testing.T) {
	r := curry()
	r.Steps = append(r.Steps, Step{Order: 1, Description: "  "}, Step{Order: 2, Description: "盛る"})
	r.Normalize()

	require.Len(t, r.Steps, 3)
	for i, s := range r.Steps {
		assert.Equal(t, i+1, s.Order)
	}
	assert.Equal(t, "盛る", r.Steps[2].Description)
}

func TestRemoveStep(t *testing.T) {
	steps := RenumberSteps([]Step{{Description: "a"}, {Description: "b"}, {Description: "c"}})

	got := RemoveStep(steps, 1)
	assert.Equal(t, []Step{{Order: 1, Description: "a"}, {Order: 2, Description: "c"}}, got)

	assert.Len(t, RemoveStep(got, 7), 2)
}

func TestTagList(t *testing.T) {
	r := Recipe{Tags: "定番, 簡単、 夕食"}
	assert.Equal(t, []string{"定番", "簡単", "夕食"}, r.TagList())
}

func TestParseFilter(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		f, err := ParseFilter(url.Values{})
		require.NoError(t, err)
		assert.Equal(t, DefaultFilter(), f)
	})

	t.Run("full", func(t *testing.T) {
		f, err := ParseFilter(url.Values{
			"category":   {"洋食"},
			"sortBy":     {"name"},
			"order":      {"asc"},
			"search":     {"トマト"},
			"searchType": {"ingredients"},
		})
		require.NoError(t, err)
		assert.Equal(t, Filter{
			Category: "洋食",
			SortBy:   SortByName,
			Order:    Asc,
			Search:   &Search{Type: SearchIngredients, Query: "トマト"},
		}, f)
	})

	t.Run("createdAt alias", func(t *testing.T) {
		f, err := ParseFilter(url.Values{"sortBy": {"createdAt"}})
		require.NoError(t, err)
		assert.Equal(t, SortByDate, f.SortBy)
	})

	for _, q := range []url.Values{
		{"sortBy": {"calories"}},
		{"order": {"up"}},
		{"search": {"x"}, "searchType": {"memo"}},
	} {
		_, err := ParseFilter(q)
		assert.True(t, shared.IsValidation(err), "query %v", q)
	}
}

func TestRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))

	created, err := repo.Create(ctx, curry())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, []Step{{Order: 1, Description: "切る"}, {Order: 2, Description: "煮る"}}, created.Steps)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)
	assert.Equal(t, created.Ingredients, got.Ingredients)
	assert.Equal(t, 40, *got.CookingTime)
	assert.Nil(t, got.Servings)

	got.Name = "ビーフカレー"
	got.Steps = RemoveStep(got.Steps, 0)
	updated, err := repo.Update(ctx, created.ID, got)
	require.NoError(t, err)
	assert.Equal(t, "ビーフカレー", updated.Name)
	assert.Equal(t, []Step{{Order: 1, Description: "煮る"}}, updated.Steps)

	_, err = repo.Update(ctx, "missing", got)
	assert.True(t, shared.IsNotFound(err))

	_, err = repo.Create(ctx, Recipe{Name: "empty"})
	assert.True(t, shared.IsValidation(err))

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.Get(ctx, created.ID)
	assert.True(t, shared.IsNotFound(err))
	assert.True(t, shared.IsNotFound(repo.Delete(ctx, created.ID)))
}

func TestRepository_DeleteDetachesMenus(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRepository(db)

	rec, err := repo.Create(ctx, curry())
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO menus (id, date, recipe_id, created_at) VALUES ('m1', '2024-03-15', ?, ?)`,
		rec.ID, database.FormatTime(time.Now()))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, rec.ID))

	var recipeID sql.NullString
	require.NoError(t, db.QueryRow(`SELECT recipe_id FROM menus WHERE id = 'm1'`).Scan(&recipeID))
	assert.False(t, recipeID.Valid)
}

func TestRepository_ListAndSearch(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	c, err := repo.Create(ctx, curry())
	require.NoError(t, err)
	p, err := repo.Create(ctx, Recipe{
		Name:        "ナポリタン",
		Category:    CategoryWestern,
		Ingredients: []Ingredient{{Name: "トマトケチャップ", Quantity: "大さじ4"}, {Name: "玉ねぎ", Quantity: "1/2個"}},
		Steps:       []Step{{Description: "茹でる"}},
		Tags:        "麺",
	})
	require.NoError(t, err)
	m, err := repo.Create(ctx, Recipe{
		Name:        "麻婆豆腐",
		Category:    CategoryChinese,
		Ingredients: []Ingredient{{Name: "豆腐", Quantity: "1丁"}},
		Steps:       []Step{{Description: "炒める"}},
		Tags:        "辛い",
	})
	require.NoError(t, err)

	ids := func(rs []Recipe) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.ID
		}
		return out
	}

	all, err := repo.List(ctx, DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, []string{m.ID, p.ID, c.ID}, ids(all))

	byName, err := repo.List(ctx, Filter{SortBy: SortByName, Order: Asc})
	require.NoError(t, err)
	assert.Len(t, byName, 3)

	western, err := repo.List(ctx, Filter{Category: CategoryWestern, SortBy: SortByDate, Order: Desc})
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, ids(western))

	onion, err := repo.List(ctx, Filter{SortBy: SortByDate, Order: Asc, Search: &Search{Type: SearchIngredients, Query: "玉ねぎ"}})
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, p.ID}, ids(onion))

	tagged, err := repo.List(ctx, Filter{SortBy: SortByDate, Order: Desc, Search: &Search{Type: SearchTags, Query: "辛"}})
	require.NoError(t, err)
	assert.Equal(t, []string{m.ID}, ids(tagged))

	literal, err := repo.List(ctx, Filter{SortBy: SortByDate, Order: Desc, Search: &Search{Type: SearchName, Query: "%"}})
	require.NoError(t, err)
	assert.Empty(t, literal)

	found, err := repo.Search(ctx, SearchQuery{Q: "トマト"})
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, ids(found))

	found, err = repo.Search(ctx, SearchQuery{Q: "玉ねぎ", Category: CategoryJapanese})
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID}, ids(found))

	many, err := repo.GetByIDs(ctx, []string{c.ID, m.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, many, 2)
	assert.Equal(t, "麻婆豆腐", many[m.ID].Name)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestHTMLRoundTrip(t *testing.T) {
	r := curry()
	r.Servings = intPtr(4)
	r.Memo = "隠し味にはちみつ"
	r.Normalize()

	got, err := FromHTML(r.Name, ToHTML(r))
	require.NoError(t, err)

	assert.Equal(t, r.Name, got.Name)
	assert.Equal(t, r.Category, got.Category)
	assert.Equal(t, r.Ingredients, got.Ingredients)
	assert.Equal(t, r.Steps, got.Steps)
	assert.Equal(t, 40, *got.CookingTime)
	assert.Equal(t, 4, *got.Servings)
	assert.Equal(t, r.Tags, got.Tags)
}

func TestFromHTML_PlainPost(t *testing.T) {
	body := `<h2>Ingredients</h2><ul><li>Flour: 200g</li><li>Salt</li></ul>
<h2>Steps</h2><ol><li>Mix.</li><li>Bake.</li></ol>`

	got, err := FromHTML("Bread", body)
	require.NoError(t, err)
	assert.Equal(t, CategoryOther, got.Category)
	assert.Equal(t, []Ingredient{{Name: "Flour", Quantity: "200g"}, {Name: "Salt"}}, got.Ingredients)
	assert.Equal(t, []Step{{Order: 1, Description: "Mix."}, {Order: 2, Description: "Bake."}}, got.Steps)
	assert.Nil(t, got.CookingTime)
}
