package cmd

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/iksnae/tchat/internal"
	"github.com/mattn/go-runewidth"
)

const (
	titleWidth   = 40
	previewWidth = 50
)

// truncate flattens s onto one line and cuts it to width display cells
func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}

// padRight pads s with spaces to width display cells
func padRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// relativeTime renders a server timestamp relative to now ("3 hours ago").
// Unparseable values are returned as-is and missing ones as a dash.
func relativeTime(ts string, now time.Time) string {
	if ts == "" {
		return "—"
	}
	t := internal.ParseServerTime(ts)
	if t.IsZero() {
		return ts
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// plural renders "1 comment" or "3 comments"
func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return humanize.Comma(int64(n)) + " " + word + "s"
}
