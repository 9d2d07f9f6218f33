// Package attribution turns billing totals and daily activity into per-user
// series with an estimated cost attached to every unit of activity.
package attribution

import (
	"github.com/samber/lo"

	"github.com/janekbaraniewski/copilotspend/internal/core"
)

// DeriveRates estimates a cost per generation for every category observed
// in rows. Categories that cannot be priced directly (no matching total, or
// no units) fall back to the org-wide blended rate when one exists.
func DeriveRates(rows []core.ActivityRow, totals []core.CategoryTotal) core.RateInfo {
	return deriveRates(core.NormalizeActivityRows(rows), core.NormalizeCategoryTotals(totals))
}

// deriveRates expects normalized input.
func deriveRates(rows []core.ActivityRow, totals []core.CategoryTotal) core.RateInfo {
	unitsByCategory := make(map[string]float64)
	unitsAll := 0.0
	for _, r := range rows {
		unitsByCategory[r.Category] += r.GenerationCount
		unitsAll += r.GenerationCount
	}

	amountByCategory := lo.SliceToMap(totals, func(t core.CategoryTotal) (string, float64) {
		return t.Category, t.NetAmount
	})
	amountAll := lo.SumBy(totals, func(t core.CategoryTotal) float64 {
		return t.NetAmount
	})

	info := core.RateInfo{
		Rates:           make(core.RateTable, len(unitsByCategory)),
		BlendedRate:     core.SafeRatio(amountAll, unitsAll),
		CostIsEstimated: true,
	}

	for _, category := range core.CategoriesOf(rows) {
		rate := 0.0
		if amount, ok := amountByCategory[category]; ok {
			rate = core.SafeRatio(amount, unitsByCategory[category])
		}
		if rate == 0 && info.BlendedRate > 0 {
			rate = info.BlendedRate
			info.UsedBlendedRate = true
		}
		info.Rates[category] = rate
	}
	return info
}
