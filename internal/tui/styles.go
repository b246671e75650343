package tui

import "github.com/charmbracelet/lipgloss"

// Styles are the lipgloss styles the calendar view renders with.
type Styles struct {
	Header   lipgloss.Style
	Weekday  lipgloss.Style
	Sunday   lipgloss.Style
	Saturday lipgloss.Style
	Cell     lipgloss.Style
	Outside  lipgloss.Style
	Today    lipgloss.Style
	Cursor   lipgloss.Style
	Entry    lipgloss.Style
	Dialog   lipgloss.Style
	Error    lipgloss.Style
	Muted    lipgloss.Style
	Footer   lipgloss.Style
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	accent := lipgloss.Color("#e07a5f")
	muted := lipgloss.Color("#8d99ae")

	return Styles{
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(accent).
			Padding(0, 2).
			Bold(true),
		Weekday:  lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Center).Bold(true),
		Sunday:   lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Center).Bold(true).Foreground(lipgloss.Color("#d62828")),
		Saturday: lipgloss.NewStyle().Width(cellWidth).Align(lipgloss.Center).Bold(true).Foreground(lipgloss.Color("#277da1")),
		Cell:     lipgloss.NewStyle().Width(cellWidth),
		Outside:  lipgloss.NewStyle().Width(cellWidth).Foreground(muted),
		Today:    lipgloss.NewStyle().Width(cellWidth).Bold(true).Underline(true),
		Cursor:   lipgloss.NewStyle().Width(cellWidth).Reverse(true),
		Entry:    lipgloss.NewStyle().Foreground(lipgloss.Color("#3d405b")),
		Dialog: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1).
			MarginTop(1),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("#d62828")).Bold(true),
		Muted:  lipgloss.NewStyle().Foreground(muted),
		Footer: lipgloss.NewStyle().Foreground(muted).MarginTop(1),
	}
}
