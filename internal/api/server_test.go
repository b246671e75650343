package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"meal-calendar/internal/database"
	"meal-calendar/internal/menu"
	"meal-calendar/internal/metrics"
	"meal-calendar/internal/recipe"
	"meal-calendar/internal/storage"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	srv     *httptest.Server
	recipes *recipe.Repository
	images  *storage.ImageStore
	metrics *metrics.Collectors
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	db, err := database.NewDB(filepath.Join(dir, "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	recipes := recipe.NewRepository(db.SQL)
	images, err := storage.NewImageStore(filepath.Join(dir, "images"), "http://localhost/images")
	require.NoError(t, err)
	m := metrics.New()

	s := NewServer(Deps{
		Menus:    menu.NewService(menu.NewRepository(db.SQL), recipes, zap.NewNop(), menu.WithRecorder(m)),
		Recipes:  recipes,
		Images:   images,
		Metrics:  m,
		Logger:   zap.NewNop(),
		Location: tokyo,
	})
	s.now = func() time.Time { return time.Date(2024, time.March, 15, 12, 0, 0, 0, tokyo) }

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return testEnv{srv: srv, recipes: recipes, images: images, metrics: m}
}

func (e testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e testEnv) recipe(t *testing.T, name string, ingredients ...recipe.Ingredient) recipe.Recipe {
	t.Helper()
	r, err := e.recipes.Create(context.Background(), recipe.Recipe{
		Name:        name,
		Category:    recipe.CategoryJapanese,
		Ingredients: ingredients,
		Steps:       []recipe.Step{{Description: "煮る"}},
	})
	require.NoError(t, err)
	return r
}

func TestMenuLifecycle(t *testing.T) {
	env := newTestEnv(t)
	curry := env.recipe(t, "カレー", recipe.Ingredient{Name: "玉ねぎ", Quantity: "1個"})

	resp := env.do(t, http.MethodPost, "/api/menus", map[string]string{"date": "2024-03-10", "recipeId": curry.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[menu.Entry](t, resp)
	assert.Equal(t, "2024-03-10", created.Date.String())
	require.NotNil(t, created.Recipe)
	assert.Equal(t, "カレー", created.Recipe.Name)

	resp = env.do(t, http.MethodPost, "/api/menus", map[string]string{"date": "2024-03-10", "memo": "外食"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errBody := decode[ErrorResponse](t, resp)
	assert.Equal(t, "conflict", errBody.Reason)
	assert.Equal(t, "この日付には既に献立が登録されています", errBody.Error)

	resp = env.do(t, http.MethodGet, "/api/menus?startDate=2024-03-01&endDate=2024-03-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decode[[]menu.Entry](t, resp)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	resp = env.do(t, http.MethodPut, "/api/menus/"+created.ID, map[string]string{"date": "2024-03-11"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2024-03-11", decode[menu.Entry](t, resp).Date.String())

	resp = env.do(t, http.MethodDelete, "/api/menus/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "献立を削除しました", decode[map[string]string](t, resp)["message"])

	resp = env.do(t, http.MethodGet, "/api/menus/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "献立が見つかりません", decode[ErrorResponse](t, resp).Error)

	// The recipe outlives its menu entry.
	resp = env.do(t, http.MethodGet, "/api/recipes/"+curry.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMenuValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		reason string
	}{
		{"missing date", http.MethodPost, "/api/menus", map[string]string{"memo": "外食"}, http.StatusBadRequest, "validation"},
		{"blank memo", http.MethodPost, "/api/menus", map[string]string{"date": "2024-03-10", "memo": "  "}, http.StatusBadRequest, "validation"},
		{"bad date", http.MethodPost, "/api/menus", map[string]string{"date": "10/03/2024", "memo": "x"}, http.StatusBadRequest, "validation"},
		{"unknown recipe", http.MethodPost, "/api/menus", map[string]string{"date": "2024-03-10", "recipeId": "nope"}, http.StatusNotFound, "not_found"},
		{"bad range", http.MethodGet, "/api/menus?startDate=yesterday", nil, http.StatusBadRequest, "validation"},
		{"update missing", http.MethodPut, "/api/menus/nope", map[string]string{"date": "2024-03-10"}, http.StatusNotFound, "not_found"},
		{"delete missing", http.MethodDelete, "/api/menus/nope", nil, http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.reason, decode[ErrorResponse](t, resp).Reason)
		})
	}
}

func TestMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.srv.URL+"/api/menus", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "リクエストの形式が正しくありません", decode[ErrorResponse](t, resp).Error)
}

func TestRecipeEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/recipes", recipe.Recipe{Name: "  "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/recipes", recipe.Recipe{
		Name:        "麻婆豆腐",
		Category:    recipe.CategoryChinese,
		Ingredients: []recipe.Ingredient{{Name: "豆腐", Quantity: "1丁"}},
		Steps:       []recipe.Step{{Description: "炒める"}},
		Tags:        "辛い",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	mabo := decode[recipe.Recipe](t, resp)
	env.recipe(t, "肉じゃが", recipe.Ingredient{Name: "じゃがいも", Quantity: "3個"})

	resp = env.do(t, http.MethodGet, "/api/recipes?category="+url.QueryEscape(recipe.CategoryChinese), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]recipe.Recipe](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, mabo.ID, list[0].ID)

	resp = env.do(t, http.MethodGet, "/api/recipes?sortBy=calories", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/recipes/search?q="+url.QueryEscape("じゃがいも"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	found := decode[[]recipe.Recipe](t, resp)
	require.Len(t, found, 1)
	assert.Equal(t, "肉じゃが", found[0].Name)

	mabo.Memo = "花椒多め"
	resp = env.do(t, http.MethodPut, "/api/recipes/"+mabo.ID, mabo)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "花椒多め", decode[recipe.Recipe](t, resp).Memo)

	resp = env.do(t, http.MethodDelete, "/api/recipes/"+mabo.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/recipes/"+mabo.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func upload(t *testing.T, env testEnv, filename, contentType string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(env.srv.URL+"/api/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)

	resp := upload(t, env, "curry.png", "image/png", []byte("\x89PNG fake"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	imageURL := decode[UploadResponse](t, resp).ImageURL
	assert.True(t, strings.HasPrefix(imageURL, "http://localhost/images/recipes/"))
	assert.True(t, strings.HasSuffix(imageURL, ".png"))
	assert.True(t, env.images.Exists(imageURL))

	resp = upload(t, env, "notes.txt", "text/plain", []byte("hello"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, storage.ErrUnsupportedType.Message, decode[ErrorResponse](t, resp).Error)

	resp, err := http.Post(env.srv.URL+"/api/upload", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, storage.ErrEmpty.Message, decode[ErrorResponse](t, resp).Error)
}

func TestUpload_ServedAsImage(t *testing.T) {
	env := newTestEnv(t)

	resp := upload(t, env, "evil.html", "image/png", []byte("<html><script>alert(1)</script></html>"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	imageURL := decode[UploadResponse](t, resp).ImageURL
	assert.True(t, strings.HasSuffix(imageURL, ".png"), imageURL)

	key := strings.TrimPrefix(imageURL, "http://localhost/images/")
	served, err := http.Get(env.srv.URL + "/images/" + key)
	require.NoError(t, err)
	defer served.Body.Close()
	require.Equal(t, http.StatusOK, served.StatusCode)
	assert.Equal(t, "image/png", served.Header.Get("Content-Type"))
	assert.Equal(t, "nosniff", served.Header.Get("X-Content-Type-Options"))
}

func TestMonthCalendar(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/menus", map[string]string{"date": "2024-02-26", "memo": "鍋"})
	env.do(t, http.MethodPost, "/api/menus", map[string]string{"date": "2024-03-15", "memo": "寿司"})

	resp := env.do(t, http.MethodGet, "/api/calendar/month", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	grid := decode[GridResponse](t, resp)

	assert.Equal(t, 2024, grid.Year)
	assert.Equal(t, time.March, grid.Month)
	assert.Equal(t, "2024-02-25", grid.Start.String())
	assert.Equal(t, "2024-04-06", grid.End.String())
	require.Len(t, grid.Cells, 42)

	// 2024-02-26 is the second cell; 2024-03-15 is the 20th.
	require.NotNil(t, grid.Cells[1].Entry)
	assert.Equal(t, "鍋", grid.Cells[1].Entry.Memo)
	assert.False(t, grid.Cells[1].InFocalMonth)
	require.NotNil(t, grid.Cells[19].Entry)
	assert.True(t, grid.Cells[19].IsToday)

	resp = env.do(t, http.MethodGet, "/api/calendar/month?year=2024&month=13", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWeekCalendar(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/calendar/week?date=2024-03-13", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	grid := decode[GridResponse](t, resp)
	assert.Equal(t, "2024-03-10", grid.Start.String())
	assert.Equal(t, "2024-03-16", grid.End.String())
	assert.Len(t, grid.Cells, 7)
}

func TestExportICS(t *testing.T) {
	env := newTestEnv(t)
	r := env.recipe(t, "肉じゃが, 甘口", recipe.Ingredient{Name: "じゃがいも", Quantity: "3個"})
	resp := env.do(t, http.MethodPost, "/api/menus", map[string]string{"date": "2024-03-31", "recipeId": r.ID})
	created := decode[menu.Entry](t, resp)

	resp = env.do(t, http.MethodGet, "/api/calendar.ics?startDate=2024-03-01&endDate=2024-03-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/calendar")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	ics := string(body)

	assert.True(t, strings.HasPrefix(ics, "BEGIN:VCALENDAR\r\n"))
	assert.True(t, strings.HasSuffix(ics, "END:VCALENDAR\r\n"))
	assert.Contains(t, ics, "UID:"+created.ID+"@meal-calendar\r\n")
	assert.Contains(t, ics, "DTSTART;VALUE=DATE:20240331\r\n")
	assert.Contains(t, ics, "DTEND;VALUE=DATE:20240401\r\n")
	assert.Contains(t, ics, `SUMMARY:肉じゃが\, 甘口`)
	assert.Contains(t, ics, "DESCRIPTION:材料: じゃがいも\r\n")
}

func TestShoppingList(t *testing.T) {
	env := newTestEnv(t)
	a := env.recipe(t, "カレー", recipe.Ingredient{Name: "玉ねぎ", Quantity: "1個"}, recipe.Ingredient{Name: "にんじん", Quantity: "1本"})
	b := env.recipe(t, "シチュー", recipe.Ingredient{Name: "玉ねぎ", Quantity: "2個"})
	env.do(t, http.MethodPost, "/api/menus", map[string]string{"date": "2024-03-11", "recipeId": a.ID})
	env.do(t, http.MethodPost, "/api/menus", map[string]string{"date": "2024-03-12", "recipeId": b.ID})
	env.do(t, http.MethodPost, "/api/menus", map[string]string{"date": "2024-03-20", "recipeId": b.ID})

	// Defaults to the week containing today, 2024-03-10..16.
	resp := env.do(t, http.MethodGet, "/api/shopping-list", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[ShoppingListResponse](t, resp)

	require.Len(t, list.Items, 2)
	assert.Equal(t, "玉ねぎ", list.Items[0].Name)
	assert.Equal(t, "1個 + 2個", list.Items[0].Quantity)
	assert.Equal(t, "にんじん", list.Items[1].Name)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[metrics.SysHealth](t, resp).Status)

	env.do(t, http.MethodGet, "/api/menus/missing", nil)
	n, err := testutil.GatherAndCount(env.metrics.Registry(), "mealcal_http_requests_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 2)

	resp = env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `mealcal_http_requests_total{code="404",route="GET /api/menus/{id}"} 1`)
}

func TestSuggestMenus(t *testing.T) {
	env := newTestEnv(t)
	curry := env.recipe(t, "カレー", recipe.Ingredient{Name: "玉ねぎ", Quantity: "1個"})
	env.recipe(t, "シチュー", recipe.Ingredient{Name: "牛乳", Quantity: "200ml"})
	env.do(t, http.MethodPost, "/api/menus", map[string]string{"date": "2024-03-11", "recipeId": curry.ID})

	// Defaults to the week containing today; the 11th is taken.
	resp := env.do(t, http.MethodPost, "/api/menus/suggest", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	proposed := decode[SuggestResponse](t, resp)
	require.Len(t, proposed.Suggestions, 6)
	assert.Equal(t, "2024-03-10", proposed.Suggestions[0].Date.String())
	assert.Equal(t, "シチュー", proposed.Suggestions[0].RecipeName)
	assert.Empty(t, proposed.Created)

	resp = env.do(t, http.MethodGet, "/api/menus?startDate=2024-03-10&endDate=2024-03-16", nil)
	assert.Len(t, decode[[]menu.Entry](t, resp), 1)

	resp = env.do(t, http.MethodPost, "/api/menus/suggest", map[string]any{
		"startDate": "2024-03-10", "endDate": "2024-03-12", "apply": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	applied := decode[SuggestResponse](t, resp)
	assert.Len(t, applied.Created, 2)

	resp = env.do(t, http.MethodPost, "/api/menus/suggest", map[string]any{"startDate": "2024-03-12", "endDate": "2024-03-10"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", decode[ErrorResponse](t, resp).Reason)

	resp = env.do(t, http.MethodPost, "/api/menus/suggest", map[string]any{"startDate": "someday"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
