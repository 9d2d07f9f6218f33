package render

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/samber/lo"

	"github.com/janekbaraniewski/copilotspend/internal/attribution"
	"github.com/janekbaraniewski/copilotspend/internal/core"
)

// OrgSeries returns the org-wide daily totals of report in mode.
func OrgSeries(report attribution.Report, mode core.ViewMode) []float64 {
	return lo.Map(report.OrgDaily, func(d attribution.DayTotal, _ int) float64 {
		if mode == core.ModeCost {
			return d.Cost
		}
		return d.Units
	})
}

// OrgChart plots org daily totals as an ASCII line chart.
func OrgChart(report attribution.Report, mode core.ViewMode, width, height int) string {
	data := OrgSeries(report, mode)
	if len(data) == 0 {
		return DimStyle.Render("no daily data")
	}
	if len(data) == 1 {
		data = append(data, data[0])
	}

	width = max(width, 20)
	height = max(height, 3)

	caption := fmt.Sprintf("org daily requests %s..%s", report.Span.Since, report.Span.Until)
	var precision uint
	if mode == core.ModeCost {
		caption = fmt.Sprintf("org daily est. cost (USD) %s..%s", report.Span.Since, report.Span.Until)
		precision = 2
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(precision),
		asciigraph.Caption(caption),
	)
}
