package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func TestClipThenGrid(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "meal.db"))
	t.Setenv("IMAGE_DIR", filepath.Join(dir, "images"))
	t.Setenv("API_BASE_URL", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("LOG_LEVEL", "error")

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><script type="application/ld+json">
			{"@type": "Recipe", "name": "卵焼き", "recipeIngredient": ["卵 3個"], "recipeInstructions": "混ぜる\n焼く"}
		</script></head></html>`))
	}))
	defer page.Close()

	out := execute(t, "clip", page.URL)
	assert.Contains(t, out, "saved 卵焼き")

	out = execute(t, "grid", "--date", "2024-03-15")
	assert.Contains(t, out, "2024年3月")

	out = execute(t, "grid", "--week", "--date", "2024-03-15")
	assert.Contains(t, out, "2024-03-10 〜 2024-03-16")

	out = execute(t, "suggest", "--date", "2024-03-15")
	assert.Contains(t, out, "2024-03-10 卵焼き")
	assert.NotContains(t, out, "assigned")

	out = execute(t, "suggest", "--date", "2024-03-15", "--apply")
	assert.Contains(t, out, "assigned 7, skipped 0")

	out = execute(t, "suggest", "--date", "2024-03-15")
	assert.Contains(t, out, "every day already has a menu")
}

func TestPublishRequiresGhost(t *testing.T) {
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "meal.db"))
	t.Setenv("GHOST_API_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	rootCmd.SetArgs([]string{"publish", "some-id"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	err := rootCmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GHOST_API_URL")
}
