// Package render formats attribution reports for the terminal.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/samber/lo"

	"github.com/janekbaraniewski/copilotspend/internal/attribution"
	"github.com/janekbaraniewski/copilotspend/internal/core"
)

const (
	minUserWidth = 8
	maxUserWidth = 24
	columnGap    = 2
)

type column struct {
	title string
	width int
	right bool
	cell  func(core.UserSeries, attribution.UserCost) string
}

// FormatValue renders v in the unit of mode.
func FormatValue(v float64, mode core.ViewMode) string {
	if mode == core.ModeCost {
		return fmt.Sprintf("$%.2f", v)
	}
	return fmt.Sprintf("%.0f", v)
}

// Table renders one line per user. In cost mode users are ordered by
// estimated cost, in requests mode by request count. Optional columns are
// dropped from the right until the table fits width; width <= 0 disables
// fitting.
func Table(report attribution.Report, mode core.ViewMode, width int) string {
	if len(report.Users) == 0 {
		return DimStyle.Render("no users in report")
	}

	costs := lo.KeyBy(report.UserCosts, func(c attribution.UserCost) string { return c.User })
	users := append([]core.UserSeries(nil), report.Users...)
	if mode == core.ModeRequests {
		sort.SliceStable(users, func(i, j int) bool {
			return costs[users[i].User].Units > costs[users[j].User].Units
		})
	}

	userWidth := minUserWidth
	for _, u := range users {
		userWidth = max(userWidth, min(ansi.StringWidth(u.User), maxUserWidth))
	}

	columns := []column{
		{title: "USER", width: userWidth, cell: func(u core.UserSeries, _ attribution.UserCost) string { return u.User }},
		{title: "REQUESTS", width: 9, right: true, cell: func(_ core.UserSeries, c attribution.UserCost) string {
			return FormatValue(c.Units, core.ModeRequests)
		}},
		{title: "EST. COST", width: 10, right: true, cell: func(_ core.UserSeries, c attribution.UserCost) string {
			return FormatValue(c.Cost, core.ModeCost)
		}},
		{title: "ACCEPT", width: 6, right: true, cell: func(u core.UserSeries, _ attribution.UserCost) string {
			return fmt.Sprintf("%.0f%%", u.AcceptRate*100)
		}},
		{title: "TOP MODEL", width: 16, cell: func(u core.UserSeries, _ attribution.UserCost) string { return dash(u.TopCategory) }},
		{title: "LANGUAGE", width: 12, cell: func(u core.UserSeries, _ attribution.UserCost) string { return dash(u.TopLanguage) }},
		{title: "FEATURE", width: 14, cell: func(u core.UserSeries, _ attribution.UserCost) string { return dash(u.TopFeature) }},
	}
	if width > 0 {
		for len(columns) > 3 && tableWidth(columns) > width {
			columns = columns[:len(columns)-1]
		}
	}

	var sb strings.Builder
	headers := lo.Map(columns, func(c column, _ int) string {
		return HeaderStyle.Render(pad(c.title, c.width, c.right))
	})
	sb.WriteString(clip(strings.Join(headers, gap()), width))
	sb.WriteByte('\n')

	for _, u := range users {
		cost := costs[u.User]
		cells := lo.Map(columns, func(c column, i int) string {
			text := pad(c.cell(u, cost), c.width, c.right)
			switch {
			case i == 0:
				return AccentStyle.Render(text)
			case c.title == "TOP MODEL" && u.TopCategory != "":
				return lipgloss.NewStyle().Foreground(CategoryColor(u.TopCategory)).Render(text)
			default:
				return ValueStyle.Render(text)
			}
		})
		sb.WriteString(clip(strings.Join(cells, gap()), width))
		sb.WriteByte('\n')
	}

	total := fmt.Sprintf("total %s across %d users", FormatValue(report.TotalCost, core.ModeCost), len(users))
	if report.Rates.CostIsEstimated {
		total += " (estimated)"
	}
	sb.WriteString(clip(LabelStyle.Render(total), width))
	for _, w := range report.Warnings {
		sb.WriteByte('\n')
		sb.WriteString(clip(WarnStyle.Render("! "+w), width))
	}
	return sb.String()
}

func tableWidth(columns []column) int {
	return lo.SumBy(columns, func(c column) int { return c.width }) + columnGap*(len(columns)-1)
}

func gap() string {
	return strings.Repeat(" ", columnGap)
}

// pad truncates s to width cells and pads it to exactly width.
func pad(s string, width int, right bool) string {
	s = ansi.Truncate(s, width, "…")
	fill := strings.Repeat(" ", max(0, width-ansi.StringWidth(s)))
	if right {
		return fill + s
	}
	return s + fill
}

func clip(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Truncate(s, width, "")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
