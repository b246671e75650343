package api

import (
	"net/http"
	"strings"

	"meal-calendar/internal/calday"
	"meal-calendar/internal/menu"
	"meal-calendar/internal/shared"
)

// menuBody is the wire form of a create or update. Dates may be YYYY-MM-DD
// or RFC 3339; either way they are reduced to a calendar day in the server's
// time zone.
type menuBody struct {
	Date     *string `json:"date"`
	RecipeID *string `json:"recipeId"`
	Memo     *string `json:"memo"`
}

func (s *Server) parseDay(field, v string) (calday.Day, error) {
	d, err := calday.Parse(strings.TrimSpace(v), s.loc)
	if err != nil {
		return calday.Day{}, shared.Validation("%s の日付形式が正しくありません: %q", field, v)
	}
	return d, nil
}

func (s *Server) parseRange(r *http.Request) (calday.Range, error) {
	q := r.URL.Query()
	rng, err := calday.ParseRange(q.Get("startDate"), q.Get("endDate"), s.loc)
	if err != nil {
		return calday.Range{}, shared.Validation("%v", err)
	}
	return rng, nil
}

func (s *Server) listMenus(w http.ResponseWriter, r *http.Request) {
	rng, err := s.parseRange(r)
	if err != nil {
		s.writeError(w, r, err, "献立の取得に失敗しました")
		return
	}
	entries, err := s.menus.ListInRange(r.Context(), rng)
	if err != nil {
		s.writeError(w, r, err, "献立の取得に失敗しました")
		return
	}
	if entries == nil {
		entries = []menu.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) createMenu(w http.ResponseWriter, r *http.Request) {
	const fallback = "献立の登録に失敗しました"

	var body menuBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err, fallback)
		return
	}

	var req menu.CreateRequest
	if body.RecipeID != nil {
		req.RecipeID = *body.RecipeID
	}
	if body.Memo != nil {
		req.Memo = *body.Memo
	}
	if body.Date != nil && strings.TrimSpace(*body.Date) != "" {
		d, err := s.parseDay("date", *body.Date)
		if err != nil {
			s.writeError(w, r, err, fallback)
			return
		}
		req.Date = d
	}

	e, err := s.menus.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err, fallback)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) getMenu(w http.ResponseWriter, r *http.Request) {
	e, err := s.menus.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, "献立の取得に失敗しました")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) updateMenu(w http.ResponseWriter, r *http.Request) {
	const fallback = "献立の更新に失敗しました"

	var body menuBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err, fallback)
		return
	}

	req := menu.UpdateRequest{RecipeID: body.RecipeID}
	if body.Date != nil && strings.TrimSpace(*body.Date) != "" {
		d, err := s.parseDay("date", *body.Date)
		if err != nil {
			s.writeError(w, r, err, fallback)
			return
		}
		req.Date = &d
	}

	e, err := s.menus.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeError(w, r, err, fallback)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) deleteMenu(w http.ResponseWriter, r *http.Request) {
	if err := s.menus.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err, "献立の削除に失敗しました")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "献立を削除しました"})
}
