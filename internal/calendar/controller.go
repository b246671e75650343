package calendar

import (
	"fmt"
	"time"

	"meal-calendar/internal/calday"
	"meal-calendar/internal/menu"
	"meal-calendar/internal/recipe"
	"meal-calendar/internal/shared"
)

// Mode selects the month or week layout.
type Mode int

const (
	ModeMonth Mode = iota
	ModeWeek
)

func (m Mode) String() string {
	if m == ModeWeek {
		return "week"
	}
	return "month"
}

// Phase is where the date-click interaction currently stands.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAssigning
	PhaseViewing
	PhaseEditing
	PhaseConfirmingDelete
)

func (p Phase) String() string {
	switch p {
	case PhaseAssigning:
		return "assigning"
	case PhaseViewing:
		return "viewing"
	case PhaseEditing:
		return "editing"
	case PhaseConfirmingDelete:
		return "confirming-delete"
	default:
		return "idle"
	}
}

// Month is a focal year and month.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf returns the month containing d.
func MonthOf(d calday.Day) Month {
	return Month{Year: d.Year, Month: d.Month}
}

// Add shifts m by n months, rolling the year over as needed.
func (m Month) Add(n int) Month {
	return MonthOf(calday.New(m.Year, m.Month+time.Month(n), 1))
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// State is everything the calendar view shows. It holds plain data only so it
// can be copied, compared and serialized.
type State struct {
	Mode       Mode       `json:"mode"`
	Month      Month      `json:"month"`
	WeekAnchor calday.Day `json:"weekAnchor"`

	Phase         Phase       `json:"phase"`
	Selected      calday.Day  `json:"selected"`
	SelectedEntry *menu.Entry `json:"selectedEntry,omitempty"`
	Pending       bool        `json:"pending"`

	// Err is the last mutation failure; FetchErr the last fetch failure.
	Err      string          `json:"error,omitempty"`
	FetchErr string          `json:"fetchError,omitempty"`
	Entries  []menu.Entry    `json:"entries"`
	Recipes  []recipe.Recipe `json:"recipes"`
	Loading  bool            `json:"loading"`
	FetchSeq uint64          `json:"fetchSeq"`
	// Loaded is the range Entries were fetched for; zero until a fetch lands.
	Loaded calday.Range `json:"loaded"`
}

// NewState starts in month mode with both anchors on today.
func NewState(today calday.Day) State {
	return State{Mode: ModeMonth, Month: MonthOf(today), WeekAnchor: today}
}

// VisibleRange is the span the active grid covers.
func (s State) VisibleRange() calday.Range {
	if s.Mode == ModeWeek {
		return WeekRange(s.WeekAnchor)
	}
	return MonthRange(s.Month.Year, s.Month.Month)
}

// CanSelect reports whether d can be opened: no fetch is in flight and the
// loaded entries cover d.
func (s State) CanSelect(d calday.Day) bool {
	return !s.Loading && s.Loaded.Start != nil && s.Loaded.Contains(d)
}

// Index builds the lookup for the loaded entries.
func (s State) Index() *Index {
	return NewIndex(s.Entries)
}

// Cells binds the active grid to the loaded entries.
func Cells(s State, today calday.Day) []Cell {
	if s.Mode == ModeWeek {
		return BindWeek(s.WeekAnchor, s.Index(), today)
	}
	return BindMonth(s.Month, s.Index(), today)
}

// Event is an input to Reduce.
type Event interface{ isEvent() }

type (
	PrevMonth struct{}
	NextMonth struct{}
	PrevWeek  struct{}
	NextWeek  struct{}
	// SetMode switches layout. Neither anchor moves.
	SetMode struct{ Mode Mode }
	// GoTo moves both anchors to Day.
	GoTo struct{ Day calday.Day }
	// Refresh re-fetches the visible range.
	Refresh struct{}

	ClickDate     struct{ Day calday.Day }
	Edit          struct{}
	ConfirmDelete struct{}
	Close         struct{}

	SubmitCreate struct {
		RecipeID string
		Memo     string
	}
	SubmitUpdate struct {
		RecipeID *string
		Date     *calday.Day
	}
	SubmitDelete struct{}

	MutationDone struct{ Err error }
	FetchDone    struct {
		Seq     uint64
		Entries []menu.Entry
		Recipes []recipe.Recipe
	}
	FetchFailed struct {
		Seq uint64
		Err error
	}
)

func (PrevMonth) isEvent()     {}
func (NextMonth) isEvent()     {}
func (PrevWeek) isEvent()      {}
func (NextWeek) isEvent()      {}
func (SetMode) isEvent()       {}
func (GoTo) isEvent()          {}
func (Refresh) isEvent()       {}
func (ClickDate) isEvent()     {}
func (Edit) isEvent()          {}
func (ConfirmDelete) isEvent() {}
func (Close) isEvent()         {}
func (SubmitCreate) isEvent()  {}
func (SubmitUpdate) isEvent()  {}
func (SubmitDelete) isEvent()  {}
func (MutationDone) isEvent()  {}
func (FetchDone) isEvent()     {}
func (FetchFailed) isEvent()   {}

// Command is a side effect requested by Reduce.
type Command interface{ isCommand() }

type (
	// Fetch loads the entries in Range plus the recipe catalog.
	Fetch struct {
		Seq   uint64
		Range calday.Range
	}
	Create struct{ Req menu.CreateRequest }
	Update struct {
		ID  string
		Req menu.UpdateRequest
	}
	Delete struct{ ID string }
)

func (Fetch) isCommand()  {}
func (Create) isCommand() {}
func (Update) isCommand() {}
func (Delete) isCommand() {}

// Mount requests the first fetch.
func Mount(s State) (State, []Command) {
	return fetch(s)
}

// Reduce applies ev to s. It never performs I/O; side effects come back as commands.
func Reduce(s State, ev Event) (State, []Command) {
	switch ev := ev.(type) {
	case PrevMonth:
		s.Month = s.Month.Add(-1)
		return fetch(s)
	case NextMonth:
		s.Month = s.Month.Add(1)
		return fetch(s)
	case PrevWeek:
		s.WeekAnchor = s.WeekAnchor.AddDays(-7)
		return fetch(s)
	case NextWeek:
		s.WeekAnchor = s.WeekAnchor.AddDays(7)
		return fetch(s)
	case SetMode:
		if ev.Mode == s.Mode {
			return s, nil
		}
		s.Mode = ev.Mode
		return fetch(s)
	case GoTo:
		s.Month = MonthOf(ev.Day)
		s.WeekAnchor = ev.Day
		return fetch(s)
	case Refresh:
		return fetch(s)

	case ClickDate:
		// Entries only answer for the range they were fetched for.
		if s.Phase != PhaseIdle || !s.CanSelect(ev.Day) {
			return s, nil
		}
		s.Selected = ev.Day
		s.Err = ""
		if e, ok := s.Index().Lookup(ev.Day); ok {
			s.Phase = PhaseViewing
			s.SelectedEntry = &e
		} else {
			s.Phase = PhaseAssigning
			s.SelectedEntry = nil
		}
		return s, nil
	case Edit:
		if s.Phase == PhaseViewing {
			s.Phase = PhaseEditing
		}
		return s, nil
	case ConfirmDelete:
		if s.Phase == PhaseViewing {
			s.Phase = PhaseConfirmingDelete
		}
		return s, nil
	case Close:
		if s.Pending {
			return s, nil
		}
		return idle(s), nil

	case SubmitCreate:
		if s.Phase != PhaseAssigning || s.Pending {
			return s, nil
		}
		s.Pending = true
		s.Err = ""
		return s, []Command{Create{Req: menu.CreateRequest{Date: s.Selected, RecipeID: ev.RecipeID, Memo: ev.Memo}}}
	case SubmitUpdate:
		if s.Phase != PhaseEditing || s.Pending || s.SelectedEntry == nil {
			return s, nil
		}
		s.Pending = true
		s.Err = ""
		return s, []Command{Update{ID: s.SelectedEntry.ID, Req: menu.UpdateRequest{RecipeID: ev.RecipeID, Date: ev.Date}}}
	case SubmitDelete:
		if s.Phase != PhaseConfirmingDelete || s.Pending || s.SelectedEntry == nil {
			return s, nil
		}
		s.Pending = true
		s.Err = ""
		return s, []Command{Delete{ID: s.SelectedEntry.ID}}

	case MutationDone:
		s.Pending = false
		switch {
		case ev.Err == nil:
			s = idle(s)
		case shared.IsNotFound(ev.Err):
			// The entry is gone; there is nothing left to show in the dialog.
			s = idle(s)
			s.Err = shared.MessageOf(ev.Err)
		default:
			s.Err = shared.MessageOf(ev.Err)
		}
		return fetch(s)

	case FetchDone:
		if ev.Seq != s.FetchSeq {
			return s, nil
		}
		s.Loading = false
		s.FetchErr = ""
		s.Loaded = s.VisibleRange()
		s.Entries = ev.Entries
		s.Recipes = ev.Recipes
		return s, nil
	case FetchFailed:
		if ev.Seq != s.FetchSeq {
			return s, nil
		}
		s.Loading = false
		s.FetchErr = shared.MessageOf(ev.Err)
		return s, nil
	}
	return s, nil
}

func fetch(s State) (State, []Command) {
	s.FetchSeq++
	s.Loading = true
	return s, []Command{Fetch{Seq: s.FetchSeq, Range: s.VisibleRange()}}
}

func idle(s State) State {
	s.Phase = PhaseIdle
	s.Selected = calday.Day{}
	s.SelectedEntry = nil
	s.Err = ""
	return s
}
