package api

import (
	"net/http"

	"meal-calendar/internal/calday"
	"meal-calendar/internal/calendar"
	"meal-calendar/internal/menu"
	"meal-calendar/internal/planner"
	"meal-calendar/internal/shared"
)

// suggestBody asks for suggestions over [startDate, endDate], the current
// week when both are empty. Apply writes them straight away.
type suggestBody struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Request   string `json:"request"`
	Apply     bool   `json:"apply"`
}

// SuggestResponse lists the proposals and, when applied, what was written.
type SuggestResponse struct {
	Suggestions []planner.Suggestion `json:"suggestions"`
	Created     []menu.Entry         `json:"created,omitempty"`
	Skipped     []calday.Day         `json:"skipped,omitempty"`
}

func (s *Server) suggestMenus(w http.ResponseWriter, r *http.Request) {
	const fallback = "献立の提案に失敗しました"

	var body suggestBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err, fallback)
		return
	}

	rng := calendar.WeekRange(s.today())
	if body.StartDate != "" || body.EndDate != "" {
		var err error
		rng, err = calday.ParseRange(body.StartDate, body.EndDate, s.loc)
		if err != nil {
			s.writeError(w, r, shared.Validation("%v", err), fallback)
			return
		}
	}

	suggestions, err := s.planner.Suggest(r.Context(), rng, body.Request)
	if err != nil {
		s.writeError(w, r, err, fallback)
		return
	}
	resp := SuggestResponse{Suggestions: suggestions}
	if !body.Apply {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Created, resp.Skipped, err = s.planner.Apply(r.Context(), suggestions)
	if err != nil {
		s.writeError(w, r, err, fallback)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}
