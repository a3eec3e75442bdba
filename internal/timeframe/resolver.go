// Package timeframe resolves relative and absolute time phrases into
// concrete date ranges.
//
// This is the single authoritative timeframe parser for the application.
// Resolution is a pure function of (phrase, now); callers supply the
// anchor time explicitly so behavior is deterministic under test.
package timeframe

import (
	"strings"
	"time"

	"github.com/Veraticus/paper-trail/internal/model"
)

// DefaultWindow is the rolling window applied when a query carries no
// recognizable time phrase. Thirty rolling days is the more inclusive
// reading of an ambiguous query than "last calendar month".
const DefaultWindow = 30 * 24 * time.Hour

var monthsByName = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

// Resolve maps a time phrase to a closed-inclusive [start, end] range
// anchored at now. Calendar phrases ("this month", "january", "last
// year") resolve to calendar boundaries; relative phrases ("last week",
// "last 3 months") resolve to rolling windows ending at now. An empty
// or unrecognized phrase resolves to the rolling 30-day default.
func Resolve(phrase string, now time.Time) model.TimeRange {
	switch normalize(phrase) {
	case "last week":
		return rolling(now, 7*24*time.Hour)
	case "last month":
		return rolling(now, 30*24*time.Hour)
	case "last 3 months":
		return rolling(now, 90*24*time.Hour)
	case "last 6 months":
		return rolling(now, 180*24*time.Hour)
	case "this month":
		return calendarMonth(now.Year(), now.Month(), now.Location())
	case "this year":
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		end := time.Date(now.Year(), time.December, 31, 23, 59, 59, 0, now.Location())
		return model.NewTimeRange(start, end)
	case "last year":
		start := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, now.Location())
		end := time.Date(now.Year()-1, time.December, 31, 23, 59, 59, 0, now.Location())
		return model.NewTimeRange(start, end)
	default:
		if month, ok := monthsByName[normalize(phrase)]; ok {
			return namedMonth(month, now)
		}
		return rolling(now, DefaultWindow)
	}
}

// ContainsPhrase reports whether the supported vocabulary recognizes
// the given phrase.
func ContainsPhrase(phrase string) bool {
	switch normalize(phrase) {
	case "last week", "last month", "last 3 months", "last 6 months",
		"this month", "this year", "last year":
		return true
	}
	_, ok := monthsByName[normalize(phrase)]
	return ok
}

// Extract scans free text for the first supported time phrase and
// returns it, or the empty string when none is present. Multi-word
// phrases are checked before bare month names so "last month" never
// reads as the month "may" inside other text.
func Extract(text string) string {
	lowered := strings.ToLower(text)
	for _, phrase := range []string{
		"last week", "last month", "last 3 months",
		"last three months", "last 6 months", "last six months",
		"this month", "this year", "last year",
	} {
		if strings.Contains(lowered, phrase) {
			return canonicalPhrase(phrase)
		}
	}
	for _, token := range strings.Fields(strings.Map(stripPunct, lowered)) {
		if _, ok := monthsByName[token]; ok {
			return token
		}
	}
	return ""
}

func canonicalPhrase(phrase string) string {
	switch phrase {
	case "last three months":
		return "last 3 months"
	case "last six months":
		return "last 6 months"
	}
	return phrase
}

func normalize(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(phrase))), " ")
}

func stripPunct(r rune) rune {
	switch r {
	case '?', '!', '.', ',', ';', ':':
		return ' '
	}
	return r
}

func rolling(now time.Time, window time.Duration) model.TimeRange {
	return model.NewTimeRange(now.Add(-window), now)
}

func calendarMonth(year int, month time.Month, loc *time.Location) model.TimeRange {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return model.NewTimeRange(start, end)
}

// namedMonth resolves a bare month name to that month in the current
// year when it is this month or earlier, otherwise to the previous
// year. A bare month name never refers to the future.
func namedMonth(month time.Month, now time.Time) model.TimeRange {
	year := now.Year()
	if month > now.Month() {
		year--
	}
	return calendarMonth(year, month, now.Location())
}
