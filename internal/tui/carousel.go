// Package tui is an interactive carousel over the users of an attribution
// report.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/janekbaraniewski/copilotspend/internal/attribution"
	"github.com/janekbaraniewski/copilotspend/internal/core"
	"github.com/janekbaraniewski/copilotspend/internal/render"
)

const (
	defaultWidth    = 80
	sparklineHeight = 5
	barWidth        = 24
)

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#585B70")).
			Padding(0, 1)

	brandStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#CBA6F7"))
	keyStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#74C7EC"))
)

type Model struct {
	report attribution.Report
	mode   core.ViewMode
	series []core.UserSeries
	costs  map[string]float64
	index  int
	width  int
	height int
}

func New(report attribution.Report, mode core.ViewMode) Model {
	if mode != core.ModeRequests {
		mode = core.ModeCost
	}
	m := Model{
		report: report,
		mode:   mode,
		costs:  report.CostByUser(),
		width:  defaultWidth,
	}
	m.series = report.InMode(mode)
	return m
}

// Run blocks until the user quits the carousel.
func Run(report attribution.Report, mode core.ViewMode) error {
	_, err := tea.NewProgram(New(report, mode), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "left", "h":
		m.index = m.step(-1)
	case "right", "l":
		m.index = m.step(1)
	case "m":
		if m.mode == core.ModeCost {
			m.mode = core.ModeRequests
		} else {
			m.mode = core.ModeCost
		}
		m.series = m.report.InMode(m.mode)
	}
	return m, nil
}

// step moves the cursor by delta, wrapping at both ends.
func (m Model) step(delta int) int {
	n := len(m.series)
	if n == 0 {
		return 0
	}
	return ((m.index+delta)%n + n) % n
}

func (m Model) View() string {
	width := max(m.width, 40)

	var sb strings.Builder
	sb.WriteString(m.header())
	sb.WriteString("\n\n")
	if len(m.series) == 0 {
		sb.WriteString(render.DimStyle.Render("no users in report"))
	} else {
		sb.WriteString(cardStyle.Width(width - 2).Render(m.card(width - 6)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.help())
	return sb.String()
}

func (m Model) header() string {
	parts := []string{
		brandStyle.Render("copilotspend"),
		render.LabelStyle.Render(fmt.Sprintf("%s..%s", m.report.Span.Since, m.report.Span.Until)),
		render.ValueStyle.Render(string(m.mode)),
		render.LabelStyle.Render("total " + render.FormatValue(m.report.TotalCost, core.ModeCost)),
	}
	if m.report.Synthetic {
		parts = append(parts, render.WarnStyle.Render("synthetic"))
	}
	return strings.Join(parts, "  ")
}

func (m Model) card(width int) string {
	u := m.series[m.index]

	var sb strings.Builder
	sb.WriteString(render.AccentStyle.Render(u.User))
	sb.WriteString(render.DimStyle.Render(fmt.Sprintf("  %d/%d", m.index+1, len(m.series))))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s %s   %s %s   %s %.0f%%\n",
		render.LabelStyle.Render("requests"), render.ValueStyle.Render(render.FormatValue(u.TotalGenerated, core.ModeRequests)),
		render.LabelStyle.Render("est. cost"), render.ValueStyle.Render(render.FormatValue(m.costs[u.User], core.ModeCost)),
		render.LabelStyle.Render("accept"), u.AcceptRate*100,
	))
	sb.WriteString(render.LabelStyle.Render(fmt.Sprintf("model %s  language %s  feature %s",
		orDash(u.TopCategory), orDash(u.TopLanguage), orDash(u.TopFeature))))
	sb.WriteString("\n\n")

	daily := lo.Map(u.Points, func(p core.DayPoint, _ int) float64 { return p.Total() })
	sb.WriteString(render.LabelStyle.Render("daily " + string(m.mode)))
	sb.WriteString("\n")
	sb.WriteString(userSparkline(daily, width))
	sb.WriteString("\n\n")
	sb.WriteString(m.breakdown(u))
	return sb.String()
}

func userSparkline(daily []float64, width int) string {
	if len(daily) == 0 {
		return render.DimStyle.Render("no activity")
	}
	sl := sparkline.New(max(min(width, len(daily)*2), 1), sparklineHeight,
		sparkline.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#89B4FA"))),
	)
	sl.PushAll(daily)
	sl.Draw()
	return sl.View()
}

// breakdown lists the user's categories by their share of the period.
func (m Model) breakdown(u core.UserSeries) string {
	totals := make(map[string]float64)
	for _, p := range u.Points {
		for c, v := range p.Values {
			totals[c] += v
		}
	}
	categories := lo.Filter(lo.Keys(totals), func(c string, _ int) bool { return totals[c] > 0 })
	if len(categories) == 0 {
		return render.DimStyle.Render("no activity in period")
	}
	sort.Slice(categories, func(i, j int) bool {
		a, b := categories[i], categories[j]
		if totals[a] != totals[b] {
			return totals[a] > totals[b]
		}
		return a < b
	})

	sum := lo.SumBy(categories, func(c string) float64 { return totals[c] })
	lines := lo.Map(categories, func(c string, _ int) string {
		filled := int(totals[c] / sum * barWidth)
		bar := lipgloss.NewStyle().Foreground(render.CategoryColor(c)).Render(strings.Repeat("█", filled)) +
			render.DimStyle.Render(strings.Repeat("░", barWidth-filled))
		return fmt.Sprintf("%-18.18s %s %s", c, bar, render.FormatValue(totals[c], m.mode))
	})
	return strings.Join(lines, "\n")
}

func (m Model) help() string {
	keys := [][2]string{{"←/→", "user"}, {"m", "cost/requests"}, {"q", "quit"}}
	return strings.Join(lo.Map(keys, func(k [2]string, _ int) string {
		return keyStyle.Render(k[0]) + " " + render.DimStyle.Render(k[1])
	}), "  ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
