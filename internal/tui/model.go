// Package tui is the terminal front-end for the meal calendar. It renders the
// month or week grid and feeds key presses through calendar.Reduce; every
// command Reduce returns runs on the Loader as a tea.Cmd.
package tui

import (
	"context"
	"fmt"

	"meal-calendar/internal/calday"
	"meal-calendar/internal/calendar"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// eventMsg carries the outcome of a command back into Update.
type eventMsg struct{ ev calendar.Event }

// Model is the bubbletea model for the calendar screen.
type Model struct {
	ctx    context.Context
	loader *calendar.Loader
	styles Styles

	state  calendar.State
	boot   []calendar.Command
	today  calday.Day
	cursor calday.Day

	input     textinput.Model
	recipeIdx int // -1 means no recipe
	shift     int // days to move the entry by when editing
	width     int
}

// New builds a model positioned on today. The first fetch starts with Init.
func New(ctx context.Context, loader *calendar.Loader, today calday.Day) Model {
	ti := textinput.New()
	ti.Placeholder = "メモ"
	ti.CharLimit = 200
	ti.Width = 40
	ti.Cursor.SetMode(cursor.CursorStatic)

	state, boot := calendar.Mount(calendar.NewState(today))
	return Model{
		ctx:       ctx,
		loader:    loader,
		styles:    DefaultStyles(),
		state:     state,
		boot:      boot,
		today:     today,
		cursor:    today,
		input:     ti,
		recipeIdx: -1,
	}
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, loader *calendar.Loader, today calday.Day) error {
	p := tea.NewProgram(New(ctx, loader, today), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("calendar ui failed: %w", err)
	}
	return nil
}

// State exposes the controller state, mainly for tests.
func (m Model) State() calendar.State {
	return m.state
}

// Cursor is the day the keyboard cursor is on.
func (m Model) Cursor() calday.Day {
	return m.cursor
}

func (m Model) Init() tea.Cmd {
	return m.run(m.boot)
}

func (m Model) run(cmds []calendar.Command) tea.Cmd {
	if len(cmds) == 0 {
		return nil
	}
	batch := make([]tea.Cmd, len(cmds))
	for i, c := range cmds {
		batch[i] = func() tea.Msg {
			return eventMsg{ev: m.loader.Run(m.ctx, c)}
		}
	}
	return tea.Batch(batch...)
}

func (m Model) apply(ev calendar.Event) (Model, tea.Cmd) {
	var cmds []calendar.Command
	m.state, cmds = calendar.Reduce(m.state, ev)
	if m.state.Phase == calendar.PhaseIdle {
		m.input.Blur()
	}
	return m, m.run(cmds)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m.apply(msg.ev)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.state.Phase {
		case calendar.PhaseIdle:
			return m.updateIdle(msg)
		case calendar.PhaseAssigning:
			return m.updateAssigning(msg)
		case calendar.PhaseViewing:
			return m.updateViewing(msg)
		case calendar.PhaseEditing:
			return m.updateEditing(msg)
		case calendar.PhaseConfirmingDelete:
			return m.updateConfirm(msg)
		}
	}
	return m, nil
}

func (m Model) updateIdle(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		return m.moveCursor(-1)
	case "right", "l":
		return m.moveCursor(1)
	case "up", "k":
		return m.moveCursor(-7)
	case "down", "j":
		return m.moveCursor(7)
	case "n":
		if m.state.Mode == calendar.ModeWeek {
			m.cursor = m.cursor.AddDays(7)
			return m.apply(calendar.NextWeek{})
		}
		next := m.state.Month.Add(1)
		m.cursor = calday.New(next.Year, next.Month, 1)
		return m.apply(calendar.NextMonth{})
	case "p":
		if m.state.Mode == calendar.ModeWeek {
			m.cursor = m.cursor.AddDays(-7)
			return m.apply(calendar.PrevWeek{})
		}
		prev := m.state.Month.Add(-1)
		m.cursor = calday.New(prev.Year, prev.Month, 1)
		return m.apply(calendar.PrevMonth{})
	case "m":
		mode := calendar.ModeWeek
		if m.state.Mode == calendar.ModeWeek {
			mode = calendar.ModeMonth
		}
		// The GoTo fetch supersedes the SetMode one; re-anchoring keeps the
		// cursor visible in the new layout.
		m.state, _ = calendar.Reduce(m.state, calendar.SetMode{Mode: mode})
		return m.apply(calendar.GoTo{Day: m.cursor})
	case "t":
		m.cursor = m.today
		return m.apply(calendar.GoTo{Day: m.today})
	case "r":
		return m.apply(calendar.Refresh{})
	case "enter", " ":
		next, cmd := m.apply(calendar.ClickDate{Day: m.cursor})
		next.recipeIdx = -1
		next.shift = 0
		if next.state.Phase == calendar.PhaseAssigning {
			next.input.SetValue("")
			next.input.Focus()
		}
		return next, cmd
	}
	return m, nil
}

// moveCursor steps the cursor and follows it into the next page when it
// leaves the visible grid.
func (m Model) moveCursor(days int) (tea.Model, tea.Cmd) {
	m.cursor = m.cursor.AddDays(days)
	switch m.state.Mode {
	case calendar.ModeWeek:
		if !calendar.WeekRange(m.state.WeekAnchor).Contains(m.cursor) {
			return m.apply(calendar.GoTo{Day: m.cursor})
		}
	default:
		if calendar.MonthOf(m.cursor) != m.state.Month {
			return m.apply(calendar.GoTo{Day: m.cursor})
		}
	}
	return m, nil
}

func (m Model) selectedRecipeID() string {
	if m.recipeIdx < 0 || m.recipeIdx >= len(m.state.Recipes) {
		return ""
	}
	return m.state.Recipes[m.recipeIdx].ID
}

// currentRecipeID is the recipe of the entry being edited, if any.
func (m Model) currentRecipeID() string {
	if m.state.SelectedEntry == nil {
		return ""
	}
	return m.state.SelectedEntry.RecipeID
}

// currentRecipeIdx locates the edited entry's recipe in the catalog, or -1.
func (m Model) currentRecipeIdx() int {
	id := m.currentRecipeID()
	if id == "" {
		return -1
	}
	for i, r := range m.state.Recipes {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (m Model) cycleRecipe() Model {
	m.recipeIdx++
	if m.recipeIdx >= len(m.state.Recipes) {
		m.recipeIdx = -1
	}
	return m
}

func (m Model) updateAssigning(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.apply(calendar.Close{})
	case "tab":
		return m.cycleRecipe(), nil
	case "enter":
		return m.apply(calendar.SubmitCreate{RecipeID: m.selectedRecipeID(), Memo: m.input.Value()})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateViewing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "e":
		next, cmd := m.apply(calendar.Edit{})
		if next.state.Phase == calendar.PhaseEditing {
			next.recipeIdx = next.currentRecipeIdx()
		}
		return next, cmd
	case "d":
		return m.apply(calendar.ConfirmDelete{})
	case "esc", "q":
		return m.apply(calendar.Close{})
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.apply(calendar.Close{})
	case "tab":
		return m.cycleRecipe(), nil
	case "+", "]":
		m.shift++
		return m, nil
	case "-", "[":
		m.shift--
		return m, nil
	case "enter":
		var ev calendar.SubmitUpdate
		if id := m.selectedRecipeID(); id != "" && id != m.currentRecipeID() {
			ev.RecipeID = &id
		}
		if m.shift != 0 && m.state.SelectedEntry != nil {
			d := m.state.SelectedEntry.Date.AddDays(m.shift)
			ev.Date = &d
		}
		return m.apply(ev)
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y":
		return m.apply(calendar.SubmitDelete{})
	case "n", "esc":
		return m.apply(calendar.Close{})
	}
	return m, nil
}
