package attribution

import (
	"sort"

	"github.com/samber/lo"

	"github.com/janekbaraniewski/copilotspend/internal/core"
)

// Result is the per-user view of one attribution run. Every series in Users
// shares the day axis in Days.
type Result struct {
	Users      []core.UserSeries `json:"users"`
	Categories []string          `json:"categories"`
	Days       []string          `json:"days"`
	Rates      core.RateInfo     `json:"rates"`
}

type options struct {
	ensureUsers []string
	span        core.DateRange
}

type Option func(*options)

// WithEnsureUsers guarantees a series for each user even when they have no
// activity, e.g. seat holders who never used the service.
func WithEnsureUsers(users ...string) Option {
	return func(o *options) {
		o.ensureUsers = append(o.ensureUsers, users...)
	}
}

// WithSpan fixes the day axis to every day of span and drops rows outside
// it. Invalid spans are ignored.
func WithSpan(span core.DateRange) Option {
	return func(o *options) {
		if span = span.Clamp(); span.Valid() {
			o.span = span
		}
	}
}

// BuildUserSeries groups activity by user and day, and orders users by their
// estimated cost, highest first.
func BuildUserSeries(rows []core.ActivityRow, totals []core.CategoryTotal, opts ...Option) Result {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	rows = core.NormalizeActivityRows(rows)
	if !o.span.IsZero() {
		rows = lo.Filter(rows, func(r core.ActivityRow, _ int) bool {
			return o.span.Contains(r.Day)
		})
	}
	totals = core.NormalizeCategoryTotals(totals)

	rates := deriveRates(rows, totals)
	categories := core.CategoriesOf(rows)
	days := core.DaysOf(rows)
	if !o.span.IsZero() {
		days = o.span.Days()
	}

	byUser := lo.GroupBy(rows, func(r core.ActivityRow) string { return r.User })
	for _, user := range core.NormalizeUsers(o.ensureUsers) {
		if _, ok := byUser[user]; !ok {
			byUser[user] = nil
		}
	}

	users := make([]core.UserSeries, 0, len(byUser))
	for user, userRows := range byUser {
		users = append(users, buildSeries(user, userRows, days, categories))
	}

	costs := make(map[string]float64, len(users))
	for _, u := range users {
		costs[u.User] = EstimateTotalCost(u, rates.Rates)
	}
	sort.Slice(users, func(i, j int) bool {
		ci, cj := costs[users[i].User], costs[users[j].User]
		if ci != cj {
			return ci > cj
		}
		return users[i].User < users[j].User
	})

	return Result{
		Users:      users,
		Categories: categories,
		Days:       days,
		Rates:      rates,
	}
}

func buildSeries(user string, rows []core.ActivityRow, days, categories []string) core.UserSeries {
	byDay := lo.GroupBy(rows, func(r core.ActivityRow) string { return r.Day })

	series := core.UserSeries{
		User:   user,
		Points: make([]core.DayPoint, 0, len(days)),
	}
	categoryTally := make(map[string]float64)
	languageTally := make(map[string]float64)
	featureTally := make(map[string]float64)

	for _, day := range days {
		point := core.DayPoint{Day: day, Values: make(map[string]float64, len(categories))}
		for _, c := range categories {
			point.Values[c] = 0
		}

		for _, r := range byDay[day] {
			point.Values[r.Category] += r.GenerationCount
			series.TotalGenerated += r.GenerationCount
			series.TotalAccepted += r.AcceptanceCount
			series.TotalInteractions += r.InteractionCount

			categoryTally[r.Category] += r.GenerationCount
			if r.TopLanguage != "" {
				languageTally[r.TopLanguage] += r.GenerationCount
			}
			if r.TopFeature != "" {
				featureTally[r.TopFeature] += r.GenerationCount
			}
		}
		series.Points = append(series.Points, point)
	}

	series.AcceptRate = min(core.SafeRatio(series.TotalAccepted, series.TotalGenerated), 1)
	series.TopCategory = core.TopKey(categoryTally)
	series.TopLanguage = core.TopKey(languageTally)
	series.TopFeature = core.TopKey(featureTally)
	return series
}
