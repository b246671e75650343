package api

import (
	"net/http"
	"strconv"
	"time"

	"meal-calendar/internal/calday"
	"meal-calendar/internal/calendar"
	"meal-calendar/internal/metrics"
	"meal-calendar/internal/shared"
	"meal-calendar/internal/shopping"
)

// GridResponse is a bound month or week grid.
type GridResponse struct {
	Mode  string          `json:"mode"`
	Year  int             `json:"year,omitempty"`
	Month time.Month      `json:"month,omitempty"`
	Start calday.Day      `json:"start"`
	End   calday.Day      `json:"end"`
	Cells []calendar.Cell `json:"cells"`
}

func (s *Server) today() calday.Day {
	return calday.Of(s.now(), s.loc)
}

func (s *Server) monthCalendar(w http.ResponseWriter, r *http.Request) {
	const fallback = "献立の取得に失敗しました"
	q := r.URL.Query()
	m := calendar.MonthOf(s.today())

	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			s.writeError(w, r, shared.Validation("year が正しくありません: %q", v), fallback)
			return
		}
		m.Year = y
	}
	if v := q.Get("month"); v != "" {
		mo, err := strconv.Atoi(v)
		if err != nil || mo < 1 || mo > 12 {
			s.writeError(w, r, shared.Validation("month は 1〜12 で指定してください: %q", v), fallback)
			return
		}
		m.Month = time.Month(mo)
	}

	rng := calendar.MonthRange(m.Year, m.Month)
	entries, err := s.menus.ListInRange(r.Context(), rng)
	if err != nil {
		s.writeError(w, r, err, fallback)
		return
	}

	writeJSON(w, http.StatusOK, GridResponse{
		Mode:  calendar.ModeMonth.String(),
		Year:  m.Year,
		Month: m.Month,
		Start: *rng.Start,
		End:   *rng.End,
		Cells: calendar.BindMonth(m, calendar.NewIndex(entries), s.today()),
	})
}

func (s *Server) weekCalendar(w http.ResponseWriter, r *http.Request) {
	const fallback = "献立の取得に失敗しました"

	anchor := s.today()
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := s.parseDay("date", v)
		if err != nil {
			s.writeError(w, r, err, fallback)
			return
		}
		anchor = d
	}

	rng := calendar.WeekRange(anchor)
	entries, err := s.menus.ListInRange(r.Context(), rng)
	if err != nil {
		s.writeError(w, r, err, fallback)
		return
	}

	writeJSON(w, http.StatusOK, GridResponse{
		Mode:  calendar.ModeWeek.String(),
		Start: *rng.Start,
		End:   *rng.End,
		Cells: calendar.BindWeek(anchor, calendar.NewIndex(entries), s.today()),
	})
}

// rangeOrDefault reads startDate/endDate, falling back to def when neither is given.
func (s *Server) rangeOrDefault(r *http.Request, def calday.Range) (calday.Range, error) {
	rng, err := s.parseRange(r)
	if err != nil {
		return calday.Range{}, err
	}
	if rng.Start == nil && rng.End == nil {
		return def, nil
	}
	return rng, nil
}

func (s *Server) exportICS(w http.ResponseWriter, r *http.Request) {
	const fallback = "献立の取得に失敗しました"
	m := calendar.MonthOf(s.today())

	rng, err := s.rangeOrDefault(r, calendar.MonthRange(m.Year, m.Month))
	if err != nil {
		s.writeError(w, r, err, fallback)
		return
	}
	entries, err := s.menus.ListInRange(r.Context(), rng)
	if err != nil {
		s.writeError(w, r, err, fallback)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=meal-calendar.ics")
	WriteICS(w, entries, s.now())
}

// ShoppingListResponse is the shopping list for a range.
type ShoppingListResponse struct {
	Start *calday.Day     `json:"start,omitempty"`
	End   *calday.Day     `json:"end,omitempty"`
	Items []shopping.Item `json:"items"`
}

func (s *Server) shoppingList(w http.ResponseWriter, r *http.Request) {
	const fallback = "買い物リストの作成に失敗しました"

	rng, err := s.rangeOrDefault(r, calendar.WeekRange(s.today()))
	if err != nil {
		s.writeError(w, r, err, fallback)
		return
	}
	entries, err := s.menus.ListInRange(r.Context(), rng)
	if err != nil {
		s.writeError(w, r, err, fallback)
		return
	}

	list := shopping.Build(entries)
	items := list.Items
	if items == nil {
		items = []shopping.Item{}
	}
	writeJSON(w, http.StatusOK, ShoppingListResponse{Start: rng.Start, End: rng.End, Items: items})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metrics.GetSysHealth(s.dataPaths...))
}
