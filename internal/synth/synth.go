// Package synth fabricates per-day, per-user, per-category usage from
// monthly category totals. It exists for orgs whose fine-grained activity
// report is unavailable; the output is plausible, not accurate, and fully
// determined by its inputs.
package synth

import (
	"math"

	"github.com/janekbaraniewski/copilotspend/internal/core"
	"github.com/janekbaraniewski/copilotspend/internal/seedrand"
)

const (
	// intensityExponent skews daily intensity toward quiet days.
	intensityExponent = 1.3
	// budgetScale maps intensity onto a per-user daily spend.
	budgetScale = 0.22

	weightFloor = 0.001
	noiseBase   = 0.6
	noiseSpan   = 0.9

	// MaterialityFloor is the smallest net amount a fabricated cell may carry.
	MaterialityFloor = 0.05

	amountFloor  = 0.05
	requestScale = 0.12
)

// Request describes one synthesis run. Start and End are inclusive
// YYYY-MM-DD days; an inverted span is swapped.
type Request struct {
	Start  string
	End    string
	Users  []string
	Totals []core.CategoryTotal
	Seed   string
}

// DailyUsage fabricates usage rows for every (day, user) of the request.
// Rows come out ordered by day, then user, then category as given.
func DailyUsage(req Request) []core.SyntheticRow {
	days := core.DateRange{Since: req.Start, Until: req.End}.Clamp().Days()
	users := core.NormalizeUsers(req.Users)
	totals := core.NormalizeCategoryTotals(req.Totals)
	if len(days) == 0 || len(users) == 0 || len(totals) == 0 {
		return nil
	}

	weights := categoryWeights(totals)
	seedBase := seedrand.Hash32(req.Seed)

	var out []core.SyntheticRow
	for _, day := range days {
		for _, user := range users {
			r := seedrand.ForPair(seedBase, day, user)

			intensity := math.Pow(r.Float64(), intensityExponent)
			budget := intensity * budgetScale

			for i, total := range totals {
				noise := noiseBase + r.Float64()*noiseSpan
				net := budget * weights[i] * noise * total.NetAmount
				if !(net >= MaterialityFloor) {
					continue
				}

				out = append(out, core.SyntheticRow{
					Date:      day,
					User:      user,
					Category:  total.Category,
					Requests:  requestsFor(net, total),
					NetAmount: net,
				})
			}
		}
	}
	return out
}

// categoryWeights weights categories by spend, with a small floor so that a
// zero-spend category is never eliminated outright.
func categoryWeights(totals []core.CategoryTotal) []float64 {
	weights := make([]float64, len(totals))
	sum := 0.0
	for i, t := range totals {
		weights[i] = math.Max(weightFloor, t.NetAmount)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

func requestsFor(net float64, total core.CategoryTotal) float64 {
	share := net / math.Max(amountFloor, total.NetAmount)
	return math.Max(1, math.Round(share*total.NetUnitCount*requestScale))
}

// ToActivityRows reshapes fabricated rows into activity rows so they can
// feed the same attribution path as real metrics. Fabricated requests count
// as both generations and interactions; nothing is ever accepted.
func ToActivityRows(rows []core.SyntheticRow) []core.ActivityRow {
	if len(rows) == 0 {
		return nil
	}
	out := make([]core.ActivityRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.ActivityRow{
			Day:              r.Date,
			User:             r.User,
			Category:         r.Category,
			GenerationCount:  core.ClampAmount(r.Requests),
			InteractionCount: core.ClampAmount(r.Requests),
		})
	}
	return out
}
