package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"meal-calendar/internal/calday"
	"meal-calendar/internal/clipper"
	"meal-calendar/internal/config"
	"meal-calendar/internal/database"
	"meal-calendar/internal/ghost"
	"meal-calendar/internal/menu"
	"meal-calendar/internal/recipe"
	"meal-calendar/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockGhost struct {
	posts   []ghost.Post
	err     error
	created []ghost.Post
	tags    [][]string
}

func (m *mockGhost) FetchPosts(_ context.Context, _ string) ([]ghost.Post, error) {
	return m.posts, m.err
}

func (m *mockGhost) CreatePost(_ context.Context, title, html string, tags []string, publish bool) (*ghost.Post, error) {
	status := "draft"
	if publish {
		status = "published"
	}
	p := ghost.Post{ID: "post-1", Title: title, HTML: html, Status: status}
	m.created = append(m.created, p)
	m.tags = append(m.tags, tags)
	return &p, nil
}

func newRepo(t *testing.T) *recipe.Repository {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return recipe.NewRepository(db.SQL)
}

const curryHTML = `<p class="recipe-meta" data-category="洋食" data-servings="4"></p>
<ul><li>玉ねぎ: 2個</li><li>カレールー: 1箱</li></ul>
<ol><li>炒める</li><li>煮込む</li></ol>`

func TestImportFromGhost(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	g := &mockGhost{posts: []ghost.Post{
		{ID: "1", Title: "カレー", HTML: curryHTML},
		{ID: "2", Title: "空の投稿", HTML: "<p>本文のみ</p>"},
	}}
	a := NewApp(g, repo, nil, zap.NewNop())

	report, err := a.ImportFromGhost(ctx, RecipeTag)
	require.NoError(t, err)
	assert.Equal(t, []string{"カレー"}, report.Imported)
	assert.Contains(t, report.Failed, "空の投稿")
	assert.True(t, shared.IsValidation(report.Failed["空の投稿"]))

	list, err := repo.List(ctx, recipe.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "洋食", list[0].Category)
	require.NotNil(t, list[0].Servings)
	assert.Equal(t, 4, *list[0].Servings)

	// A second run leaves the catalog alone.
	report, err = a.ImportFromGhost(ctx, RecipeTag)
	require.NoError(t, err)
	assert.Empty(t, report.Imported)
	assert.Equal(t, []string{"カレー"}, report.Skipped)
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestImportFromGhost_FetchError(t *testing.T) {
	a := NewApp(&mockGhost{err: errors.New("boom")}, newRepo(t), nil, zap.NewNop())
	_, err := a.ImportFromGhost(context.Background(), "")
	assert.Error(t, err)
}

func TestPublishRecipe(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	rec, err := repo.Create(ctx, recipe.Recipe{
		Name:        "焼き魚",
		Category:    recipe.CategoryJapanese,
		Ingredients: []recipe.Ingredient{{Name: "鮭", Quantity: "2切れ"}},
		Steps:       []recipe.Step{{Description: "焼く"}},
	})
	require.NoError(t, err)

	g := &mockGhost{}
	a := NewApp(g, repo, nil, zap.NewNop())
	post, err := a.PublishRecipe(ctx, rec.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "draft", post.Status)
	assert.Equal(t, []string{RecipeTag, recipe.CategoryJapanese}, g.tags[0])

	// What goes out reads back as the same recipe.
	back, err := recipe.FromHTML(post.Title, post.HTML)
	require.NoError(t, err)
	assert.Equal(t, rec.Ingredients, back.Ingredients)
	assert.Equal(t, rec.Steps, back.Steps)

	_, err = a.PublishRecipe(ctx, "missing", true)
	assert.True(t, shared.IsNotFound(err))
}

func TestClipURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><script type="application/ld+json">
			{"@type": "Recipe", "name": "卵焼き", "recipeIngredient": ["卵 3個"], "recipeInstructions": "混ぜる\n焼く"}
		</script></head><body></body></html>`))
	}))
	defer ts.Close()

	ctx := context.Background()
	repo := newRepo(t)
	a := NewApp(nil, repo, clipper.NewClipper(nil), zap.NewNop())

	rec, err := a.ClipURL(ctx, ts.URL)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "卵焼き", rec.Name)
	assert.Len(t, rec.Steps, 2)

	stored, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Memo, ts.URL)

	_, err = NewApp(nil, repo, nil, zap.NewNop()).ClipURL(ctx, ts.URL)
	assert.True(t, shared.IsValidation(err))
}

func TestOpenStores(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{DatabasePath: filepath.Join(t.TempDir(), "nested", "meal.db")}

	stores, err := OpenStores(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, stores.Remote)

	rec, err := stores.Recipes.Create(ctx, recipe.Recipe{
		Name:        "味噌汁",
		Category:    recipe.CategoryJapanese,
		Ingredients: []recipe.Ingredient{{Name: "味噌", Quantity: "大さじ2"}},
		Steps:       []recipe.Step{{Description: "溶く"}},
	})
	require.NoError(t, err)
	e, err := stores.Menus.Create(ctx, menu.CreateRequest{Date: calday.MustParse("2024-03-15"), RecipeID: rec.ID})
	require.NoError(t, err)
	require.NotNil(t, e.Recipe)
	assert.Equal(t, "味噌汁", e.Recipe.Name)
	require.NoError(t, stores.Close())

	remote, err := OpenStores(&config.Config{APIBaseURL: "http://127.0.0.1:1"}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, remote.Remote)
	assert.NoError(t, remote.Close())
}

func TestNewClipperWithoutKey(t *testing.T) {
	c, closeFn, err := NewClipper(context.Background(), &config.Config{}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.NoError(t, closeFn())
}
