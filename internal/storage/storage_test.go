package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"meal-calendar/internal/shared"
)

func TestImageStore(t *testing.T) {
	ctx := context.Background()
	tempDir := t.TempDir()

	store, err := NewImageStore(tempDir, "http://localhost:8080/images/")
	if err != nil {
		t.Fatalf("Failed to create ImageStore: %v", err)
	}
	store.now = func() time.Time { return time.UnixMilli(1710460800000) }

	var url string

	t.Run("Save", func(t *testing.T) {
		url, err = store.Save(ctx, "dinner.PNG", "image/png", []byte("png bytes"))
		if err != nil {
			t.Fatalf("Failed to save image: %v", err)
		}

		pattern := regexp.MustCompile(`^http://localhost:8080/images/recipes/1710460800000-[0-9a-f]{12}\.png$`)
		if !pattern.MatchString(url) {
			t.Errorf("Unexpected URL %q", url)
		}
		if !store.Exists(url) {
			t.Errorf("Expected image %q to exist", url)
		}

		matches, _ := filepath.Glob(filepath.Join(tempDir, "recipes", "*.png"))
		if len(matches) != 1 {
			t.Fatalf("Expected 1 file on disk, got %d", len(matches))
		}
		data, _ := os.ReadFile(matches[0])
		if string(data) != "png bytes" {
			t.Errorf("Unexpected file content %q", data)
		}
	})

	t.Run("ExtensionFromType", func(t *testing.T) {
		got, err := store.Save(ctx, "blob", "image/jpeg", []byte{0xff, 0xd8})
		if err != nil {
			t.Fatalf("Failed to save image: %v", err)
		}
		if filepath.Ext(got) != ".jpg" {
			t.Errorf("Expected .jpg extension, got %q", got)
		}
	})

	t.Run("NameCannotChooseExtension", func(t *testing.T) {
		for _, name := range []string{"evil.html", "page.svg", "x.php.png.htm"} {
			got, err := store.Save(ctx, name, "image/png", []byte("<html></html>"))
			if err != nil {
				t.Fatalf("Failed to save %s: %v", name, err)
			}
			if filepath.Ext(got) != ".png" {
				t.Errorf("%s: expected .png extension, got %q", name, got)
			}
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		_, err := store.Save(ctx, "doc.pdf", "application/pdf", []byte("%PDF"))
		if err != ErrUnsupportedType {
			t.Errorf("Expected ErrUnsupportedType, got %v", err)
		}
		if !shared.IsValidation(err) {
			t.Errorf("Expected a validation error, got %v", err)
		}
	})

	t.Run("TooLarge", func(t *testing.T) {
		_, err := store.Save(ctx, "big.webp", "image/webp", bytes.Repeat([]byte{1}, MaxImageSize+1))
		if err != ErrTooLarge {
			t.Errorf("Expected ErrTooLarge, got %v", err)
		}
	})

	t.Run("ExactlyMaxSize", func(t *testing.T) {
		if _, err := store.Save(ctx, "ok.gif", "image/gif", bytes.Repeat([]byte{1}, MaxImageSize)); err != nil {
			t.Errorf("Expected a 10 MiB image to be accepted, got %v", err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if _, err := store.Save(ctx, "a.png", "image/png", nil); err != ErrEmpty {
			t.Errorf("Expected ErrEmpty, got %v", err)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		if err := store.Remove(ctx, url); err != nil {
			t.Fatalf("Failed to remove image: %v", err)
		}
		if store.Exists(url) {
			t.Errorf("Expected image %q to be gone", url)
		}
		if err := store.Remove(ctx, url); err != nil {
			t.Errorf("Removing twice should be a no-op, got %v", err)
		}
		if err := store.Remove(ctx, "https://elsewhere.example/recipes/x.png"); err != nil {
			t.Errorf("Foreign URLs should be ignored, got %v", err)
		}
	})
}
