package attribution

import (
	"github.com/samber/lo"

	"github.com/janekbaraniewski/copilotspend/internal/core"
)

// EstimateTotalCost prices every unit of the series with rates. Categories
// without a rate cost nothing.
func EstimateTotalCost(series core.UserSeries, rates core.RateTable) float64 {
	return lo.SumBy(series.Points, func(p core.DayPoint) float64 {
		return pointCost(p, rates)
	})
}

// ProjectPointsToCost returns new points on the same day axis with each
// value multiplied by its category rate. The input is not modified.
func ProjectPointsToCost(points []core.DayPoint, rates core.RateTable) []core.DayPoint {
	return lo.Map(points, func(p core.DayPoint, _ int) core.DayPoint {
		out := core.DayPoint{Day: p.Day, Values: make(map[string]float64, len(p.Values))}
		for category, v := range p.Values {
			out.Values[category] = unitCost(v, rates.Rate(category))
		}
		return out
	})
}

// ProjectSeries returns a copy of series whose points are expressed in mode.
func ProjectSeries(series core.UserSeries, rates core.RateTable, mode core.ViewMode) core.UserSeries {
	if mode == core.ModeCost {
		series.Points = ProjectPointsToCost(series.Points, rates)
		return series
	}
	series.Points = lo.Map(series.Points, func(p core.DayPoint, _ int) core.DayPoint {
		return core.DayPoint{Day: p.Day, Values: lo.MapValues(p.Values, func(v float64, _ string) float64 {
			return core.ClampAmount(v)
		})}
	})
	return series
}

// Project applies ProjectSeries to every series.
func Project(series []core.UserSeries, rates core.RateTable, mode core.ViewMode) []core.UserSeries {
	return lo.Map(series, func(s core.UserSeries, _ int) core.UserSeries {
		return ProjectSeries(s, rates, mode)
	})
}

// SumPoints adds up every value of points. Summing cost-projected points
// yields exactly EstimateTotalCost of the source series.
func SumPoints(points []core.DayPoint) float64 {
	return lo.SumBy(points, func(p core.DayPoint) float64 {
		return p.Total()
	})
}

// pointCost walks categories in sorted order, matching DayPoint.Total.
func pointCost(p core.DayPoint, rates core.RateTable) float64 {
	cost := 0.0
	for _, category := range p.Categories() {
		cost += unitCost(p.Values[category], rates.Rate(category))
	}
	return cost
}

func unitCost(units, rate float64) float64 {
	return core.ClampAmount(core.ClampAmount(units) * rate)
}
