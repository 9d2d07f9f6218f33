package core

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

type rowKey struct {
	day      string
	user     string
	category string
}

// NormalizeActivityRows trims identifiers, clamps counts and merges rows that
// share a (day, user, category) tuple. Rows without a valid day, a user or a
// category cannot be placed on any series and are dropped. Order of first
// occurrence is preserved.
func NormalizeActivityRows(rows []ActivityRow) []ActivityRow {
	if len(rows) == 0 {
		return nil
	}

	index := make(map[rowKey]int, len(rows))
	out := make([]ActivityRow, 0, len(rows))
	for _, r := range rows {
		r.Day = strings.TrimSpace(r.Day)
		r.User = strings.TrimSpace(r.User)
		r.Category = categoryName(r.Category)
		if r.User == "" || r.Category == "" || !ValidDay(r.Day) {
			continue
		}
		r.GenerationCount = ClampAmount(r.GenerationCount)
		r.AcceptanceCount = ClampAmount(r.AcceptanceCount)
		r.InteractionCount = ClampAmount(r.InteractionCount)
		r.TopLanguage = strings.TrimSpace(r.TopLanguage)
		r.TopFeature = strings.TrimSpace(r.TopFeature)

		key := rowKey{day: r.Day, user: r.User, category: r.Category}
		if i, ok := index[key]; ok {
			merged := &out[i]
			merged.GenerationCount += r.GenerationCount
			merged.AcceptanceCount += r.AcceptanceCount
			merged.InteractionCount += r.InteractionCount
			if merged.TopLanguage == "" {
				merged.TopLanguage = r.TopLanguage
			}
			if merged.TopFeature == "" {
				merged.TopFeature = r.TopFeature
			}
			continue
		}
		index[key] = len(out)
		out = append(out, r)
	}
	return out
}

// NormalizeCategoryTotals trims names, clamps amounts and sums duplicate
// categories. Unnamed categories are dropped.
func NormalizeCategoryTotals(totals []CategoryTotal) []CategoryTotal {
	if len(totals) == 0 {
		return nil
	}

	index := make(map[string]int, len(totals))
	out := make([]CategoryTotal, 0, len(totals))
	for _, t := range totals {
		t.Category = categoryName(t.Category)
		if t.Category == "" {
			continue
		}
		t.NetAmount = ClampAmount(t.NetAmount)
		t.NetUnitCount = ClampAmount(t.NetUnitCount)
		if i, ok := index[t.Category]; ok {
			out[i].NetAmount += t.NetAmount
			out[i].NetUnitCount += t.NetUnitCount
			continue
		}
		index[t.Category] = len(out)
		out = append(out, t)
	}
	return out
}

// categoryName trims a category and moves it off the "day" key that the
// flat DayPoint JSON form reserves for the date.
func categoryName(s string) string {
	s = strings.TrimSpace(s)
	if s == dayPointKey {
		return renamedDayCategory
	}
	return s
}

// NormalizeUsers trims, drops blanks and de-duplicates user identifiers,
// keeping the first occurrence order.
func NormalizeUsers(users []string) []string {
	trimmed := lo.Map(users, func(u string, _ int) string {
		return strings.TrimSpace(u)
	})
	return lo.Uniq(lo.Compact(trimmed))
}

// CategoriesOf returns the sorted set of categories present in rows.
func CategoriesOf(rows []ActivityRow) []string {
	cats := lo.Uniq(lo.Compact(lo.Map(rows, func(r ActivityRow, _ int) string {
		return r.Category
	})))
	sort.Strings(cats)
	return cats
}

// DaysOf returns the sorted set of days present in rows.
func DaysOf(rows []ActivityRow) []string {
	days := lo.Uniq(lo.Compact(lo.Map(rows, func(r ActivityRow, _ int) string {
		return r.Day
	})))
	sort.Strings(days)
	return days
}

// TopKey returns the non-empty key with the largest positive tally. Ties go
// to the lexicographically smallest key; an empty or all-zero tally yields "".
func TopKey(tally map[string]float64) string {
	best, bestValue := "", 0.0
	for key, value := range tally {
		if key == "" || !(value > 0) {
			continue
		}
		if value > bestValue || (value == bestValue && key < best) {
			best, bestValue = key, value
		}
	}
	return best
}
