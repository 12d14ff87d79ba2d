// Package format renders values for people: relative times, dates and
// shortened text.
package format

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DateLayout is the layout used by Date, e.g. "Jan 2, 2006, 03:04 PM"
const DateLayout = "Jan 2, 2006, 03:04 PM"

// TimeAgo describes how long before now t was, e.g. "5 minutes ago".
// Days are counted up to 30; beyond that months of 30 days are used.
func TimeAgo(t, now time.Time) string {
	seconds := int(now.Sub(t).Seconds())
	if seconds < 60 {
		return plural(seconds, "second")
	}
	minutes := seconds / 60
	if minutes < 60 {
		return plural(minutes, "minute")
	}
	hours := minutes / 60
	if hours < 24 {
		return plural(hours, "hour")
	}
	days := hours / 24
	if days < 30 {
		return plural(days, "day")
	}
	return plural(days/30, "month")
}

func plural(n int, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}

// Date formats t with DateLayout in UTC
func Date(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Truncate shortens s to n runes and appends "..." when it was longer
func Truncate(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// Capitalize upper-cases the first letter of s
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Title capitalizes every dash or space separated word, e.g.
// "real-time" -> "Real Time"
func Title(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '-' || r == '_' })
	for i, w := range words {
		words[i] = Capitalize(w)
	}
	return strings.Join(words, " ")
}
