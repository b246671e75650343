package api

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"meal-calendar/internal/menu"
)

// ICSProductID identifies exported calendars.
const ICSProductID = "-//meal-calendar//Menu Export//JA"

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\r", `\n`, "\n", `\n`)

// maxLineOctets is the content line limit of RFC 5545, excluding CRLF.
const maxLineOctets = 75

// foldLine splits s into CRLF + space continued lines of at most 75 octets,
// never inside a UTF-8 sequence.
func foldLine(s string) string {
	if len(s) <= maxLineOctets {
		return s
	}
	var b strings.Builder
	limit := maxLineOctets
	for len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		b.WriteString(s[:cut])
		b.WriteString("\r\n ")
		s = s[cut:]
		// The leading space counts toward the next line.
		limit = maxLineOctets - 1
	}
	b.WriteString(s)
	return b.String()
}

// WriteICS renders entries as all-day events. UIDs derive from the entry id
// so re-imports update rather than duplicate.
func WriteICS(w io.Writer, entries []menu.Entry, now time.Time) {
	line := func(format string, args ...any) {
		fmt.Fprintf(w, "%s\r\n", foldLine(fmt.Sprintf(format, args...)))
	}

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:%s", ICSProductID)
	line("CALSCALE:GREGORIAN")
	line("METHOD:PUBLISH")
	line("X-WR-CALNAME:献立カレンダー")

	stamp := now.UTC().Format("20060102T150405Z")
	for _, e := range entries {
		start := e.Date
		end := e.Date.AddDays(1)

		line("BEGIN:VEVENT")
		line("UID:%s@meal-calendar", e.ID)
		line("DTSTAMP:%s", stamp)
		line("DTSTART;VALUE=DATE:%04d%02d%02d", start.Year, int(start.Month), start.Day)
		line("DTEND;VALUE=DATE:%04d%02d%02d", end.Year, int(end.Month), end.Day)
		line("SUMMARY:%s", icsEscaper.Replace(e.Title()))
		if desc := description(e); desc != "" {
			line("DESCRIPTION:%s", icsEscaper.Replace(desc))
		}
		if e.Recipe != nil && e.Recipe.Category != "" {
			line("CATEGORIES:%s", icsEscaper.Replace(e.Recipe.Category))
		}
		line("END:VEVENT")
	}

	line("END:VCALENDAR")
}

func description(e menu.Entry) string {
	var parts []string
	if e.Recipe != nil {
		names := make([]string, 0, len(e.Recipe.Ingredients))
		for _, ing := range e.Recipe.Ingredients {
			names = append(names, ing.Name)
		}
		if len(names) > 0 {
			parts = append(parts, "材料: "+strings.Join(names, "、"))
		}
	}
	if e.Memo != "" && e.Recipe != nil {
		parts = append(parts, "メモ: "+e.Memo)
	}
	return strings.Join(parts, "\n")
}
