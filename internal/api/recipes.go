package api

import (
	"errors"
	"io"
	"net/http"

	"meal-calendar/internal/recipe"
	"meal-calendar/internal/shared"
	"meal-calendar/internal/storage"

	"go.uber.org/zap"
)

func (s *Server) listRecipes(w http.ResponseWriter, r *http.Request) {
	const fallback = "レシピの取得に失敗しました"

	f, err := recipe.ParseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err, fallback)
		return
	}
	recipes, err := s.recipes.List(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err, fallback)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (s *Server) searchRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.recipes.Search(r.Context(), recipe.ParseSearchQuery(r.URL.Query()))
	if err != nil {
		s.writeError(w, r, err, "レシピの検索に失敗しました")
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (s *Server) createRecipe(w http.ResponseWriter, r *http.Request) {
	const fallback = "レシピの登録に失敗しました"

	var body recipe.Recipe
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err, fallback)
		return
	}
	created, err := s.recipes.Create(r.Context(), body)
	if err != nil {
		s.writeError(w, r, err, fallback)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getRecipe(w http.ResponseWriter, r *http.Request) {
	rec, err := s.recipes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, "レシピの取得に失敗しました")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) updateRecipe(w http.ResponseWriter, r *http.Request) {
	const fallback = "レシピの更新に失敗しました"

	var body recipe.Recipe
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err, fallback)
		return
	}
	updated, err := s.recipes.Update(r.Context(), r.PathValue("id"), body)
	if err != nil {
		s.writeError(w, r, err, fallback)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	const fallback = "レシピの削除に失敗しました"
	ctx := r.Context()
	id := r.PathValue("id")

	existing, err := s.recipes.Get(ctx, id)
	if err != nil {
		s.writeError(w, r, err, fallback)
		return
	}
	if err := s.recipes.Delete(ctx, id); err != nil {
		s.writeError(w, r, err, fallback)
		return
	}
	if s.images != nil && existing.ImageURL != "" {
		if err := s.images.Remove(ctx, existing.ImageURL); err != nil {
			s.logger.Warn("failed to remove recipe image", zap.String("recipe", id), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "レシピを削除しました"})
}

// UploadResponse is returned by POST /api/upload.
type UploadResponse struct {
	ImageURL string `json:"imageUrl"`
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	const fallback = "画像のアップロードに失敗しました"
	if s.images == nil {
		s.writeError(w, r, errors.New("image storage is not configured"), fallback)
		return
	}

	// Leave room for the multipart envelope around a maximum-size file.
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxImageSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeError(w, r, storage.ErrTooLarge, fallback)
			return
		}
		s.writeError(w, r, storage.ErrEmpty, fallback)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxImageSize+1))
	if err != nil {
		s.writeError(w, r, shared.Transport("failed to read upload", err), fallback)
		return
	}

	url, err := s.images.Save(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		s.writeError(w, r, err, fallback)
		return
	}
	writeJSON(w, http.StatusCreated, UploadResponse{ImageURL: url})
}
