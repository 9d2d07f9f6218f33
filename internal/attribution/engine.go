package attribution

import (
	"github.com/samber/lo"

	"github.com/janekbaraniewski/copilotspend/internal/core"
	"github.com/janekbaraniewski/copilotspend/internal/synth"
)

// Source names where the daily rows of a report came from.
type Source string

const (
	SourceMetrics   Source = "metrics"
	SourceSynthetic Source = "synthetic"
)

// Input bundles everything one attribution run consumes. Rows are only used
// when RowsAvailable is set; otherwise usage is synthesized for Seats over
// Span from Totals.
type Input struct {
	Totals        []core.CategoryTotal
	Rows          []core.ActivityRow
	RowsAvailable bool
	Seats         []string
	Span          core.DateRange
	Seed          string
}

type UserCost struct {
	User  string  `json:"user"`
	Units float64 `json:"units"`
	Cost  float64 `json:"cost"`
}

// DayTotal is the org-wide sum of one day across all users.
type DayTotal struct {
	Day   string  `json:"day"`
	Units float64 `json:"units"`
	Cost  float64 `json:"cost"`
}

type Report struct {
	Result
	Source    Source         `json:"source"`
	Synthetic bool           `json:"synthetic"`
	Span      core.DateRange `json:"span"`
	UserCosts []UserCost     `json:"user_costs"`
	OrgDaily  []DayTotal     `json:"org_daily"`
	TotalCost float64        `json:"total_cost"`
	Warnings  []string       `json:"warnings,omitempty"`
}

// Compute runs attribution, synthesizing daily usage when real rows are
// unavailable. It never fails; degraded output is flagged on the report.
func Compute(in Input) Report {
	span := in.Span.Clamp()
	opts := []Option{WithEnsureUsers(in.Seats...)}
	if span.Valid() {
		opts = append(opts, WithSpan(span))
	}

	report := Report{Source: SourceMetrics, Span: span}
	rows := in.Rows
	if !in.RowsAvailable {
		report.Source = SourceSynthetic
		report.Synthetic = true
		report.Warnings = append(report.Warnings, "daily activity unavailable, usage is synthesized from billing totals")
		if !span.Valid() {
			report.Warnings = append(report.Warnings, "no valid date span to synthesize over")
		}
		rows = synth.ToActivityRows(synth.DailyUsage(synth.Request{
			Start:  span.Since,
			End:    span.Until,
			Users:  in.Seats,
			Totals: in.Totals,
			Seed:   in.Seed,
		}))
	}

	report.Result = BuildUserSeries(rows, in.Totals, opts...)
	if report.Rates.UsedBlendedRate {
		report.Warnings = append(report.Warnings, "some categories are priced with the blended org rate")
	}

	report.UserCosts = lo.Map(report.Users, func(u core.UserSeries, _ int) UserCost {
		return UserCost{
			User:  u.User,
			Units: SumPoints(u.Points),
			Cost:  EstimateTotalCost(u, report.Rates.Rates),
		}
	})
	report.TotalCost = lo.SumBy(report.UserCosts, func(c UserCost) float64 { return c.Cost })
	report.OrgDaily = orgDaily(report.Days, report.Users, report.Rates.Rates)
	return report
}

func orgDaily(days []string, users []core.UserSeries, rates core.RateTable) []DayTotal {
	out := make([]DayTotal, len(days))
	for i, day := range days {
		out[i].Day = day
	}
	for _, u := range users {
		for i, p := range u.Points {
			if i >= len(out) {
				break
			}
			out[i].Units += p.Total()
			out[i].Cost += pointCost(p, rates)
		}
	}
	return out
}

// CostByUser indexes the report's per-user cost.
func (r Report) CostByUser() map[string]float64 {
	return lo.SliceToMap(r.UserCosts, func(c UserCost) (string, float64) {
		return c.User, c.Cost
	})
}

// InMode returns the report's series expressed in mode.
func (r Report) InMode(mode core.ViewMode) []core.UserSeries {
	return Project(r.Users, r.Rates.Rates, mode)
}
