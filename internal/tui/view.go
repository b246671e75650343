package tui

import (
	"fmt"
	"strings"
	"time"

	"meal-calendar/internal/calday"
	"meal-calendar/internal/calendar"

	"github.com/charmbracelet/lipgloss"
)

const cellWidth = 12

var weekdayNames = [7]string{"日", "月", "火", "水", "木", "金", "土"}

func (m Model) View() string {
	var b strings.Builder
	st := m.styles
	s := m.state

	b.WriteString(st.Header.Render(m.title()))
	if s.Loading {
		b.WriteString(st.Muted.Render("  読み込み中…"))
	}
	b.WriteString("\n\n")
	b.WriteString(m.grid())

	if s.FetchErr != "" {
		b.WriteString(st.Error.Render(s.FetchErr))
		b.WriteString("\n")
	}
	if d := m.dialog(); d != "" {
		b.WriteString(st.Dialog.Render(d))
		b.WriteString("\n")
	}
	b.WriteString(st.Footer.Render(m.help()))
	return b.String()
}

// RenderGrid draws a loaded state as a static calendar, without cursor or
// dialogs.
func RenderGrid(s calendar.State, today calday.Day) string {
	m := Model{styles: DefaultStyles(), state: s, today: today}
	return m.styles.Header.Render(m.title()) + "\n\n" + m.grid()
}

func (m Model) grid() string {
	var b strings.Builder
	st := m.styles

	head := make([]string, 7)
	for i, name := range weekdayNames {
		switch time.Weekday(i) {
		case time.Sunday:
			head[i] = st.Sunday.Render(name)
		case time.Saturday:
			head[i] = st.Saturday.Render(name)
		default:
			head[i] = st.Weekday.Render(name)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, head...))
	b.WriteString("\n")

	cells := calendar.Cells(m.state, m.today)
	for row := 0; row*7 < len(cells); row++ {
		rendered := make([]string, 7)
		for i, c := range cells[row*7 : row*7+7] {
			rendered[i] = m.renderCell(c)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) title() string {
	s := m.state
	if s.Mode == calendar.ModeWeek {
		rng := calendar.WeekRange(s.WeekAnchor)
		return fmt.Sprintf("%s 〜 %s", rng.Start, rng.End)
	}
	return fmt.Sprintf("%d年%d月", s.Month.Year, int(s.Month.Month))
}

func (m Model) renderCell(c calendar.Cell) string {
	st := m.styles
	label := fmt.Sprintf("%2d", c.Day.Day)
	body := ""
	if c.Entry != nil {
		body = st.Entry.Render(truncate(c.Entry.Title(), 5))
	}
	text := label + "\n" + body

	switch {
	case c.Day == m.cursor:
		return st.Cursor.Render(text)
	case c.IsToday:
		return st.Today.Render(text)
	case !c.InFocalMonth:
		return st.Outside.Render(text)
	}
	return st.Cell.Render(text)
}

func (m Model) recipeLabel() string {
	if m.recipeIdx < 0 || m.recipeIdx >= len(m.state.Recipes) {
		return "（なし）"
	}
	return m.state.Recipes[m.recipeIdx].Name
}

func (m Model) dialog() string {
	s := m.state
	var lines []string

	switch s.Phase {
	case calendar.PhaseAssigning:
		lines = append(lines,
			fmt.Sprintf("%s の献立を登録", s.Selected),
			"レシピ: "+m.recipeLabel(),
			m.input.View(),
		)
	case calendar.PhaseViewing, calendar.PhaseEditing, calendar.PhaseConfirmingDelete:
		e := s.SelectedEntry
		if e == nil {
			return ""
		}
		lines = append(lines, fmt.Sprintf("%s  %s", e.Date, e.Title()))
		if e.Recipe != nil {
			for _, ing := range e.Recipe.Ingredients {
				lines = append(lines, fmt.Sprintf("  ・%s %s", ing.Name, ing.Quantity))
			}
			if e.Memo != "" {
				lines = append(lines, "メモ: "+e.Memo)
			}
		}
		switch s.Phase {
		case calendar.PhaseEditing:
			lines = append(lines,
				"レシピ: "+m.recipeLabel(),
				fmt.Sprintf("日付: %s", e.Date.AddDays(m.shift)),
			)
		case calendar.PhaseConfirmingDelete:
			lines = append(lines, "この献立を削除しますか？ (y/n)")
		}
	default:
		if s.Err == "" {
			return ""
		}
	}

	if s.Pending {
		lines = append(lines, m.styles.Muted.Render("保存中…"))
	}
	if s.Err != "" {
		lines = append(lines, m.styles.Error.Render(s.Err))
	}
	return strings.Join(lines, "\n")
}

func (m Model) help() string {
	switch m.state.Phase {
	case calendar.PhaseAssigning:
		return "tab: レシピ切替  enter: 登録  esc: 閉じる"
	case calendar.PhaseViewing:
		return "e: 編集  d: 削除  esc: 閉じる"
	case calendar.PhaseEditing:
		return "tab: レシピ切替  +/-: 日付移動  enter: 保存  esc: 閉じる"
	case calendar.PhaseConfirmingDelete:
		return "y: 削除  n: キャンセル"
	}
	return "←↓↑→: 移動  enter: 選択  n/p: 次/前  m: 月/週  t: 今日  r: 更新  q: 終了"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
