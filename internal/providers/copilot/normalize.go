package copilot

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/janekbaraniewski/copilotspend/internal/core"
)

const (
	unknownModel = "(unknown model)"
	unknownField = "-"

	minPeriodYear = 2008
	maxPeriodYear = 2100
)

// ClampPeriod validates a billing period. ok is false when either part is
// out of range, in which case the caller should omit the period entirely.
func ClampPeriod(year, month int) (int, int, bool) {
	if year < minPeriodYear || year > maxPeriodYear || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}

type premiumKey struct {
	product string
	sku     string
	model   string
}

// GroupPremiumItems sums usage items per (product, SKU, model), ordered by
// net amount, highest first.
func GroupPremiumItems(items []PremiumUsageItem) []PremiumRow {
	index := make(map[premiumKey]int)
	var rows []PremiumRow
	for _, it := range items {
		model := lo.CoalesceOrEmpty(strings.TrimSpace(it.Model), unknownModel)
		key := premiumKey{product: it.Product, sku: it.SKU, model: model}

		i, ok := index[key]
		if !ok {
			i = len(rows)
			index[key] = i
			rows = append(rows, PremiumRow{
				Product:  lo.CoalesceOrEmpty(it.Product, unknownField),
				SKU:      lo.CoalesceOrEmpty(it.SKU, unknownField),
				Model:    model,
				UnitType: lo.CoalesceOrEmpty(it.UnitType, unknownField),
			})
		}

		row := &rows[i]
		if it.PricePerUnit > 0 {
			row.PricePerUnit = it.PricePerUnit
		}
		row.GrossQuantity += core.ClampAmount(it.GrossQuantity)
		row.GrossAmount += core.ClampAmount(it.GrossAmount)
		row.DiscountQuantity += core.ClampAmount(it.DiscountQuantity)
		row.DiscountAmount += core.ClampAmount(it.DiscountAmount)
		row.NetQuantity += core.ClampAmount(it.NetQuantity)
		row.NetAmount += core.ClampAmount(it.NetAmount)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].NetAmount > rows[j].NetAmount
	})
	return rows
}

// TopUsageItems returns up to n items with the largest net amount. The input
// is not modified.
func TopUsageItems(items []PremiumUsageItem, n int) []PremiumUsageItem {
	top := make([]PremiumUsageItem, len(items))
	copy(top, items)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].NetAmount > top[j].NetAmount
	})
	if n >= 0 && len(top) > n {
		top = top[:n]
	}
	return top
}

// Summarize computes headline figures over grouped rows. rows are expected
// in GroupPremiumItems order.
func Summarize(rows []PremiumRow) PremiumSummary {
	s := PremiumSummary{ModelCount: len(rows)}
	for _, r := range rows {
		s.Gross += r.GrossAmount
		s.Discount += r.DiscountAmount
		s.Net += r.NetAmount
		s.Quantity += r.NetQuantity
	}

	top3 := lo.SumBy(lo.Subset(rows, 0, 3), func(r PremiumRow) float64 { return r.NetAmount })
	s.DiscountRate = core.SafeRatio(s.Discount, s.Gross)
	s.Concentration = core.SafeRatio(top3, s.Net)
	s.NetPerRequest = core.SafeRatio(s.Net, s.Quantity)
	return s
}

// CategoryTotals collapses grouped rows into one total per model, ordered by
// net amount, highest first.
func CategoryTotals(rows []PremiumRow) []core.CategoryTotal {
	byModel := make(map[string]*core.CategoryTotal)
	var out []*core.CategoryTotal
	for _, r := range rows {
		t, ok := byModel[r.Model]
		if !ok {
			t = &core.CategoryTotal{Category: r.Model}
			byModel[r.Model] = t
			out = append(out, t)
		}
		t.NetAmount += r.NetAmount
		t.NetUnitCount += r.NetQuantity
	}

	totals := lo.Map(out, func(t *core.CategoryTotal, _ int) core.CategoryTotal { return *t })
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].NetAmount > totals[j].NetAmount
	})
	return totals
}

type modelActivity struct {
	generated float64
	accepted  float64
	languages map[string]float64
}

// ActivityRowsFromMetrics splits each report row into one activity row per
// model using totals_by_language_model. Rows without model detail carry no
// category and are skipped. Interaction counts are per row and repeat on
// every model split from it.
func ActivityRowsFromMetrics(rows []MetricsRow) []core.ActivityRow {
	var out []core.ActivityRow
	for _, r := range rows {
		if len(r.TotalsByLanguageModel) == 0 {
			continue
		}

		features := make(map[string]float64)
		for _, it := range r.TotalsByModelFeature {
			features[it.Feature] += core.ClampAmount(it.CodeGenerationActivityCount)
		}
		topFeature := core.TopKey(features)

		var order []string
		models := make(map[string]*modelActivity)
		for _, it := range r.TotalsByLanguageModel {
			m, ok := models[it.Model]
			if !ok {
				m = &modelActivity{languages: make(map[string]float64)}
				models[it.Model] = m
				order = append(order, it.Model)
			}
			gen := core.ClampAmount(it.CodeGenerationActivityCount)
			m.generated += gen
			m.accepted += core.ClampAmount(it.CodeAcceptanceActivityCount)
			m.languages[it.Language] += gen
		}

		for _, model := range order {
			m := models[model]
			out = append(out, core.ActivityRow{
				Day:              r.Day,
				User:             r.UserLogin,
				Category:         model,
				GenerationCount:  m.generated,
				AcceptanceCount:  m.accepted,
				InteractionCount: core.ClampAmount(r.UserInitiatedInteractionCount),
				TopLanguage:      core.TopKey(m.languages),
				TopFeature:       topFeature,
			})
		}
	}
	return out
}

// SeatLogins returns the sorted, unique logins of assigned seats.
func SeatLogins(seats []Seat) []string {
	logins := lo.Uniq(lo.Compact(lo.Map(seats, func(s Seat, _ int) string {
		return strings.TrimSpace(s.Login())
	})))
	sort.Strings(logins)
	return logins
}
