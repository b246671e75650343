package telegram

import (
	"fmt"
	"strings"
	"time"

	"meal-calendar/internal/calday"
	"meal-calendar/internal/calendar"
	"meal-calendar/internal/menu"
	"meal-calendar/internal/metrics"
	"meal-calendar/internal/planner"
	"meal-calendar/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var weekdayNames = [...]string{"日", "月", "火", "水", "木", "金", "土"}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// escapeMarkdown protects user text inside legacy Markdown messages.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// dayLabel renders a day as 3/15(金).
func dayLabel(d calday.Day) string {
	return fmt.Sprintf("%d/%d(%s)", int(d.Month), d.Day, weekdayNames[d.Weekday()])
}

func formatEntry(e menu.Entry) string {
	var sb strings.Builder
	sb.WriteString("🍳 *" + escapeMarkdown(e.Title()) + "*\n")
	if e.Recipe != nil {
		if e.Recipe.CookingTime != nil {
			sb.WriteString(fmt.Sprintf("⏱ %d分\n", *e.Recipe.CookingTime))
		}
		for _, ing := range e.Recipe.Ingredients {
			sb.WriteString("• " + escapeMarkdown(strings.TrimSpace(ing.Name+" "+ing.Quantity)) + "\n")
		}
		if e.Memo != "" {
			sb.WriteString("_" + escapeMarkdown(e.Memo) + "_\n")
		}
	}
	return sb.String()
}

// formatWeek lists all seven days, marking today.
func formatWeek(cells []calendar.Cell) string {
	if len(cells) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *%s 〜 %s*\n\n", dayLabel(cells[0].Day), dayLabel(cells[len(cells)-1].Day)))
	for _, c := range cells {
		marker := "  "
		if c.IsToday {
			marker = "👉"
		}
		title := "—"
		if c.Entry != nil {
			title = escapeMarkdown(c.Entry.Title())
		}
		sb.WriteString(fmt.Sprintf("%s %s %s\n", marker, dayLabel(c.Day), title))
	}
	return sb.String()
}

// formatMonth lists only the planned days of the focal month.
func formatMonth(m calendar.Month, cells []calendar.Cell) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *%d年%d月*\n\n", m.Year, int(m.Month)))
	n := 0
	for _, c := range cells {
		if !c.InFocalMonth || c.Entry == nil {
			continue
		}
		marker := ""
		if c.IsToday {
			marker = "👉 "
		}
		sb.WriteString(fmt.Sprintf("%s%s %s\n", marker, dayLabel(c.Day), escapeMarkdown(c.Entry.Title())))
		n++
	}
	if n == 0 {
		sb.WriteString("_まだ献立がありません_\n")
	}
	return sb.String()
}

func formatShopping(rng calday.Range, list shopping.List) string {
	var sb strings.Builder
	sb.WriteString("🛒 *買い物リスト*")
	if rng.Start != nil && rng.End != nil {
		sb.WriteString(fmt.Sprintf(" (%s 〜 %s)", dayLabel(*rng.Start), dayLabel(*rng.End)))
	}
	sb.WriteString("\n\n")
	if len(list.Items) == 0 {
		sb.WriteString("_必要な材料はありません_\n")
		return sb.String()
	}
	for _, line := range list.Lines() {
		sb.WriteString("• " + escapeMarkdown(line) + "\n")
	}
	return sb.String()
}

func formatSuggestions(suggestions []planner.Suggestion, created int, skipped []calday.Day) string {
	taken := make(map[calday.Day]bool, len(skipped))
	for _, d := range skipped {
		taken[d] = true
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🧑‍🍳 *%d 日分の献立を登録しました*\n\n", created))
	for _, s := range suggestions {
		if taken[s.Date] {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s %s", dayLabel(s.Date), escapeMarkdown(s.RecipeName)))
		if s.Note != "" {
			sb.WriteString(" _" + escapeMarkdown(s.Note) + "_")
		}
		sb.WriteString("\n")
	}
	if len(skipped) > 0 {
		sb.WriteString(fmt.Sprintf("\n⚠️ %d 日は先に埋まっていたため飛ばしました\n", len(skipped)))
	}
	return sb.String()
}

func formatHealth(h metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• Status: %s (up %s)\n", h.Status, h.Uptime))
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", h.AllocMB, h.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", h.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", h.DataDiskSize))
	return sb.String()
}

// Callback data is "week|YYYY-MM-DD" or "month|YYYY-MM", well under
// Telegram's 64 byte limit.
const (
	callbackWeek  = "week"
	callbackMonth = "month"
)

func weekKeyboard(anchor calday.Day) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀ 前の週", callbackWeek+"|"+anchor.AddDays(-7).String()),
			tgbotapi.NewInlineKeyboardButtonData("次の週 ▶", callbackWeek+"|"+anchor.AddDays(7).String()),
		),
	)
}

func monthKeyboard(m calendar.Month) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀ 前の月", callbackMonth+"|"+m.Add(-1).String()),
			tgbotapi.NewInlineKeyboardButtonData("次の月 ▶", callbackMonth+"|"+m.Add(1).String()),
		),
	)
}

func parseCallback(data string) (calendar.Mode, calday.Day, error) {
	kind, arg, ok := strings.Cut(data, "|")
	if !ok {
		return 0, calday.Day{}, fmt.Errorf("malformed callback %q", data)
	}
	switch kind {
	case callbackWeek:
		d, err := calday.Parse(arg, time.UTC)
		if err != nil {
			return 0, calday.Day{}, err
		}
		return calendar.ModeWeek, d, nil
	case callbackMonth:
		t, err := time.Parse("2006-01", arg)
		if err != nil {
			return 0, calday.Day{}, err
		}
		return calendar.ModeMonth, calday.New(t.Year(), t.Month(), 1), nil
	}
	return 0, calday.Day{}, fmt.Errorf("unknown callback %q", kind)
}
