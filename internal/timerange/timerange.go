// Package timerange turns free-text date/time expressions into a concrete
// UTC half-open interval.
package timerange

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	// ErrParse means the expression matched neither an absolute format nor
	// the relative grammar.
	ErrParse = errors.New("unable to parse date/time expression")
	// ErrRange means the resolved start is not strictly before the end.
	ErrRange = errors.New("start of range must be before its end")
)

// Range is a half-open interval [Start, End) in UTC.
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) String() string {
	const layout = "2006-01-02T15:04:05Z"
	return r.Start.Format(layout) + " .. " + r.End.Format(layout)
}

// Duration returns End - Start.
func (r Range) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Resolve parses the start and end expressions in loc and returns the UTC
// range. An empty end expression resolves to now.
func Resolve(startText, endText string, now time.Time, loc *time.Location) (Range, error) {
	start, err := Parse(startText, now, loc)
	if err != nil {
		return Range{}, err
	}

	end := now
	if strings.TrimSpace(endText) != "" {
		end, err = Parse(endText, now, loc)
		if err != nil {
			return Range{}, err
		}
	}

	start, end = start.UTC(), end.UTC()
	if !start.Before(end) {
		return Range{}, fmt.Errorf("%w: %s >= %s", ErrRange, start, end)
	}
	return Range{Start: start, End: end}, nil
}

var (
	reDayWord = regexp.MustCompile(`^(today|yesterday|tomorrow|now)$`)
	// "yesterday 8:00 AM" / "8:00 AM yesterday"
	reDayWordTime = regexp.MustCompile(`^(?:(today|yesterday|tomorrow)\s+(.+)|(.+?)\s+(today|yesterday|tomorrow))$`)
	// "2 days ago", "3 weeks from now", optionally with a clock time on
	// either side.
	reRelative = regexp.MustCompile(`^(?:(.+?)\s+)?(\d+)\s+(day|week|month|year)s?\s+(ago|from\s+now)(?:\s+(.+))?$`)
	// "last week", "next month", "this year", optionally with a clock time.
	rePeriod = regexp.MustCompile(`^(?:(.+?)\s+)?(this|next|last)\s+(week|month|year)(?:\s+(.+))?$`)
)

// Parse interprets a single expression as a wall-clock instant in loc.
func Parse(text string, now time.Time, loc *time.Location) (time.Time, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: empty expression", ErrParse)
	}
	lower := strings.ToLower(trimmed)
	now = now.In(loc)

	if t, ok := parseNatural(lower, now, loc); ok {
		return t, nil
	}

	t, err := dateparse.ParseIn(trimmed, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrParse, text)
	}
	return t, nil
}

func parseNatural(lower string, now time.Time, loc *time.Location) (time.Time, bool) {
	if m := reDayWord.FindStringSubmatch(lower); m != nil {
		return dayWordInstant(m[1], now), true
	}

	if m := reDayWordTime.FindStringSubmatch(lower); m != nil {
		word, clockText := m[1], m[2]
		if word == "" {
			word, clockText = m[4], m[3]
		}
		if clock, ok := parseClock(clockText); ok {
			return atClock(dayWordInstant(word, now), clock, loc), true
		}
	}

	if m := reRelative.FindStringSubmatch(lower); m != nil {
		count, _ := strconv.Atoi(m[2])
		base := shiftBy(now, count, m[3], m[4])
		clockText := m[1]
		if clockText == "" {
			clockText = m[5]
		}
		if clockText == "" {
			return base, true
		}
		if clock, ok := parseClock(clockText); ok {
			return atClock(base, clock, loc), true
		}
		return time.Time{}, false
	}

	if m := rePeriod.FindStringSubmatch(lower); m != nil {
		base := periodStart(now, m[2], m[3], loc)
		clockText := m[1]
		if clockText == "" {
			clockText = m[4]
		}
		if clockText == "" {
			return base, true
		}
		if clock, ok := parseClock(clockText); ok {
			return atClock(base, clock, loc), true
		}
		return time.Time{}, false
	}

	return time.Time{}, false
}

func dayWordInstant(word string, now time.Time) time.Time {
	switch word {
	case "yesterday":
		return now.AddDate(0, 0, -1)
	case "tomorrow":
		return now.AddDate(0, 0, 1)
	default: // today, now
		return now
	}
}

// shiftBy moves now by count units. Months and years are approximated as 30
// and 365 days.
func shiftBy(now time.Time, count int, unit, direction string) time.Time {
	var days int
	switch unit {
	case "day":
		days = count
	case "week":
		days = count * 7
	case "month":
		days = count * 30
	case "year":
		days = count * 365
	}
	if direction == "ago" {
		days = -days
	}
	return now.AddDate(0, 0, days)
}

func periodStart(now time.Time, modifier, period string, loc *time.Location) time.Time {
	y, m, d := now.Date()
	switch period {
	case "week":
		monday := time.Date(y, m, d, 0, 0, 0, 0, loc).
			AddDate(0, 0, -((int(now.Weekday()) + 6) % 7))
		switch modifier {
		case "next":
			return monday.AddDate(0, 0, 7)
		case "last":
			return monday.AddDate(0, 0, -7)
		}
		return monday
	case "month":
		first := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		switch modifier {
		case "next":
			return first.AddDate(0, 1, 0)
		case "last":
			return first.AddDate(0, -1, 0)
		}
		return first
	default: // year
		first := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		switch modifier {
		case "next":
			return first.AddDate(1, 0, 0)
		case "last":
			return first.AddDate(-1, 0, 0)
		}
		return first
	}
}

type clock struct {
	hour, min, sec int
}

var clockLayouts = []string{"15:04:05", "15:04", "3:04:05 PM", "3:04 PM", "3 PM"}

func parseClock(text string) (clock, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(text))
	// "8:00AM" -> "8:00 AM"
	if i := strings.IndexAny(normalized, "AP"); i > 0 && strings.HasSuffix(normalized, "M") && normalized[i-1] != ' ' {
		normalized = normalized[:i] + " " + normalized[i:]
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return clock{t.Hour(), t.Minute(), t.Second()}, true
		}
	}
	return clock{}, false
}

func atClock(base time.Time, c clock, loc *time.Location) time.Time {
	y, m, d := base.In(loc).Date()
	return time.Date(y, m, d, c.hour, c.min, c.sec, 0, loc)
}
