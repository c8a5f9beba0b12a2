// Package dates provides day-granular calendar arithmetic used by the
// projection and timeline engine. Every value returned by this package is a
// UTC midnight time.Time; callers never see a time-of-day component.
package dates

import (
	"strings"
	"time"
)

// DayLayout is the canonical wire format for a day value.
const DayLayout = "2006-01-02"

var parseLayouts = []string{
	DayLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// Day truncates t to its calendar date, keeping the date as observed in t's
// own location rather than converting to UTC first.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day for the supplied clock.
func Today(now func() time.Time) time.Time {
	if now == nil {
		now = time.Now
	}
	return Day(now())
}

// AddDays shifts a day by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// AddMonths shifts a day by n calendar months. When the target month is
// shorter than the source day-of-month the result clamps to the target
// month's last day (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	d := Day(t)
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := EndOfMonth(first).Day()
	day := d.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// StartOfMonth returns the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	d := Day(t)
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// EndOfMonth returns the last day of t's month.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, -1)
}

// MonthsBetween returns the number of calendar month boundaries between a
// and b, negative when b precedes a. Day-of-month is ignored.
func MonthsBetween(a, b time.Time) int {
	a, b = Day(a), Day(b)
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// DaysBetween returns the signed whole-day distance from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// ParseDay interprets a date-like value. Strings in day or timestamp form,
// time.Time and *time.Time are accepted; anything else (including zero
// times and empty strings) reports false.
func ParseDay(v any) (time.Time, bool) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false
		}
		return Day(val), true
	case *time.Time:
		if val == nil || val.IsZero() {
			return time.Time{}, false
		}
		return Day(*val), true
	case string:
		return parseString(val)
	case *string:
		if val == nil {
			return time.Time{}, false
		}
		return parseString(*val)
	default:
		return time.Time{}, false
	}
}

func parseString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Day(t), true
		}
	}
	return time.Time{}, false
}

// Ptr returns a pointer to the day-truncated copy of t.
func Ptr(t time.Time) *time.Time {
	d := Day(t)
	return &d
}

// ParsePtr is ParseDay returning nil on failure.
func ParsePtr(v any) *time.Time {
	if t, ok := ParseDay(v); ok {
		return &t
	}
	return nil
}

// Format renders a day pointer in DayLayout, or "" when absent.
func Format(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DayLayout)
}

// Equal reports whether two optional days refer to the same calendar date.
func Equal(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Day(*a).Equal(Day(*b))
}

// Min returns the earlier of two days.
func Min(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

// Max returns the later of two days.
func Max(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
