package core

import (
	"time"
)

// DayLayout is the only date format accepted and produced by the core.
const DayLayout = "2006-01-02"

// DateRange is an inclusive span of days in YYYY-MM-DD form.
type DateRange struct {
	Since string `json:"since"`
	Until string `json:"until"`
}

// ParseDay parses a strict YYYY-MM-DD string as a UTC midnight.
func ParseDay(s string) (time.Time, bool) {
	if len(s) != len(DayLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func ValidDay(s string) bool {
	_, ok := ParseDay(s)
	return ok
}

func FormatDay(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// LastNDays returns the n-day range ending on now's UTC date.
func LastNDays(now time.Time, n int) DateRange {
	if n < 1 {
		n = 1
	}
	until := now.UTC()
	since := until.AddDate(0, 0, -(n - 1))
	return DateRange{Since: FormatDay(since), Until: FormatDay(until)}
}

// ThisMonth returns the range from the first of now's month to now.
func ThisMonth(now time.Time) DateRange {
	u := now.UTC()
	since := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	return DateRange{Since: FormatDay(since), Until: FormatDay(u)}
}

// YearToDate returns the range from January 1st of now's year to now.
func YearToDate(now time.Time) DateRange {
	u := now.UTC()
	since := time.Date(u.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	return DateRange{Since: FormatDay(since), Until: FormatDay(u)}
}

// Clamp swaps an inverted range.
func (r DateRange) Clamp() DateRange {
	if r.Since <= r.Until {
		return r
	}
	return DateRange{Since: r.Until, Until: r.Since}
}

func (r DateRange) Valid() bool {
	return ValidDay(r.Since) && ValidDay(r.Until) && r.Since <= r.Until
}

func (r DateRange) IsZero() bool {
	return r.Since == "" && r.Until == ""
}

// Contains reports whether day falls inside the range. Open ends match
// everything on that side.
func (r DateRange) Contains(day string) bool {
	if r.Since != "" && day < r.Since {
		return false
	}
	if r.Until != "" && day > r.Until {
		return false
	}
	return true
}

// Days enumerates every day of the range.
func (r DateRange) Days() []string {
	return EnumerateDays(r.Since, r.Until)
}

// Len returns the number of days in the range, or 0 when invalid.
func (r DateRange) Len() int {
	start, ok1 := ParseDay(r.Since)
	end, ok2 := ParseDay(r.Until)
	if !ok1 || !ok2 || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// EnumerateDays lists every day from start to end inclusive. It returns nil
// when either bound is invalid or start is after end.
func EnumerateDays(start, end string) []string {
	from, ok := ParseDay(start)
	if !ok {
		return nil
	}
	to, ok := ParseDay(end)
	if !ok || to.Before(from) {
		return nil
	}

	days := make([]string, 0, int(to.Sub(from).Hours()/24)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, FormatDay(d))
	}
	return days
}

// MonthOf extracts the billing year and month of a day.
func MonthOf(day string) (year int, month int, ok bool) {
	t, valid := ParseDay(day)
	if !valid {
		return 0, 0, false
	}
	return t.Year(), int(t.Month()), true
}

// RangePreset names a commonly used reporting window.
type RangePreset string

const (
	Range14d   RangePreset = "14d"
	Range28d   RangePreset = "28d"
	RangeMonth RangePreset = "month"
	RangeYTD   RangePreset = "ytd"
)

var ValidRangePresets = []RangePreset{
	Range14d,
	Range28d,
	RangeMonth,
	RangeYTD,
}

func ParseRangePreset(s string) RangePreset {
	for _, p := range ValidRangePresets {
		if string(p) == s {
			return p
		}
	}
	return Range14d
}

func (p RangePreset) Label() string {
	switch p {
	case Range28d:
		return "Last 28 days"
	case RangeMonth:
		return "This month"
	case RangeYTD:
		return "Year to date"
	default:
		return "Last 14 days"
	}
}

// Range resolves the preset against now.
func (p RangePreset) Range(now time.Time) DateRange {
	switch p {
	case Range28d:
		return LastNDays(now, 28)
	case RangeMonth:
		return ThisMonth(now)
	case RangeYTD:
		return YearToDate(now)
	default:
		return LastNDays(now, 14)
	}
}
