package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"meal-calendar/internal/shared"

	"github.com/google/uuid"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 10 << 20

var (
	ErrUnsupportedType = &shared.Error{Kind: shared.KindValidation, Message: "画像ファイル（JPEG、PNG、GIF、WebP）のみアップロード可能です"}
	ErrTooLarge        = &shared.Error{Kind: shared.KindValidation, Message: "ファイルサイズは10MB以下にしてください"}
	ErrEmpty           = &shared.Error{Kind: shared.KindValidation, Message: "ファイルが選択されていません"}
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageStore keeps uploaded recipe images on disk and hands out their URLs.
type ImageStore struct {
	basePath string
	baseURL  string
	now      func() time.Time
}

// NewImageStore creates a new ImageStore and ensures the base directory exists.
func NewImageStore(basePath, baseURL string) (*ImageStore, error) {
	if err := os.MkdirAll(filepath.Join(basePath, "recipes"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &ImageStore{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		now:      time.Now,
	}, nil
}

// Dir is the directory the images are written to.
func (s *ImageStore) Dir() string {
	return s.basePath
}

// Save validates and writes an image, returning its public URL. The stored
// extension always follows contentType; the client's file name is not used.
func (s *ImageStore) Save(_ context.Context, _, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	ext, ok := allowedTypes[strings.ToLower(contentType)]
	if !ok {
		return "", ErrUnsupportedType
	}
	if len(data) > MaxImageSize {
		return "", ErrTooLarge
	}

	key := path.Join("recipes", fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), randomSuffix(), ext))

	if err := os.WriteFile(filepath.Join(s.basePath, filepath.FromSlash(key)), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

// Remove deletes the image behind url if this store owns it. URLs pointing
// elsewhere are ignored.
func (s *ImageStore) Remove(_ context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || !strings.HasPrefix(key, "recipes/") || strings.Contains(key, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image file: %w", err)
	}
	return nil
}

// Exists reports whether the image behind url is stored here.
func (s *ImageStore) Exists(url string) bool {
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok {
		return false
	}
	_, err := os.Stat(filepath.Join(s.basePath, filepath.FromSlash(key)))
	return err == nil
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
