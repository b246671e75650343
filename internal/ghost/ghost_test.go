package ghost

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"meal-calendar/internal/config"
	"meal-calendar/internal/shared"

	"github.com/golang-jwt/jwt/v5"
)

func TestFetchPosts(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		// Mock Ghost API server serving two pages
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check that the key is in the query
			if r.URL.Query().Get("key") != "test_key" {
				t.Errorf("Expected key 'test_key', got '%s'", r.URL.Query().Get("key"))
			}
			if got := r.URL.Query().Get("filter"); got != "tag:recipe" {
				t.Errorf("Expected filter 'tag:recipe', got '%s'", got)
			}

			w.WriteHeader(http.StatusOK)
			if r.URL.Query().Get("page") == "2" {
				fmt.Fprintln(w, `{
					"posts": [{"id": "3", "title": "Recipe 3", "html": "<p>3</p>", "updated_at": "2023-10-29T10:00:00Z"}],
					"meta": {"pagination": {"page": 2, "pages": 2, "next": null}}
				}`)
				return
			}
			fmt.Fprintln(w, `{
				"posts": [
					{"id": "1", "title": "Recipe 1", "html": "<h1>Recipe 1</h1>", "updated_at": "2023-10-27T10:00:00Z"},
					{"id": "2", "title": "Recipe 2", "html": "<h1>Recipe 2</h1>", "updated_at": "2023-10-28T10:00:00Z"}
				],
				"meta": {"pagination": {"page": 1, "pages": 2, "next": 2}}
			}`)
		}))
		defer server.Close()

		// Create a config pointing to the test server
		cfg := &config.Config{
			GhostURL:        server.URL,
			GhostContentKey: "test_key",
		}
		client := NewClient(cfg)

		posts, err := client.FetchPosts(context.Background(), "recipe")
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		if len(posts) != 3 {
			t.Fatalf("Expected 3 posts, got %d", len(posts))
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		cfg := &config.Config{
			GhostURL:        server.URL,
			GhostContentKey: "test_key",
		}
		client := NewClient(cfg)

		_, err := client.FetchPosts(context.Background(), "")
		if err == nil {
			t.Fatal("Expected an error for non-200 status code, got nil")
		}
		if !shared.IsTransport(err) {
			t.Errorf("Expected a transport error, got %v", err)
		}
	})
}

func TestCreatePost(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	adminKey := "key-id:" + hex.EncodeToString(secret)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(auth, "Ghost ")
		if !ok {
			t.Errorf("Expected Ghost authorization, got %q", auth)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		token, err := jwt.Parse(raw, func(tok *jwt.Token) (any, error) {
			if kid := tok.Header["kid"]; kid != "key-id" {
				return nil, fmt.Errorf("unexpected kid %v", kid)
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithAudience("/v3/admin/"))
		if err != nil || !token.Valid {
			t.Errorf("Expected a valid admin token, got %v", err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var body map[string][]Post
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body["posts"]) == 0 {
			t.Errorf("Failed to decode body: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		p := body["posts"][0]
		if p.Status != "draft" {
			t.Errorf("Expected draft status, got %q", p.Status)
		}
		if len(p.Tags) != 1 || p.Tags[0].Name != "recipe" {
			t.Errorf("Expected the recipe tag, got %+v", p.Tags)
		}

		p.ID = "new-post"
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string][]Post{"posts": {p}})
	}))
	defer server.Close()

	client := NewClient(&config.Config{GhostURL: server.URL, GhostAdminKey: adminKey})
	post, err := client.CreatePost(context.Background(), "肉じゃが", "<p>煮る</p>", []string{"recipe"}, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if post.ID != "new-post" || post.Title != "肉じゃが" {
		t.Errorf("Unexpected post %+v", post)
	}
}

func TestCreatePostRejectsBadKey(t *testing.T) {
	client := NewClient(&config.Config{GhostURL: "http://127.0.0.1:1", GhostAdminKey: "no-separator"})
	if _, err := client.CreatePost(context.Background(), "t", "h", nil, true); err == nil {
		t.Fatal("Expected an error for a malformed admin key")
	}
}
