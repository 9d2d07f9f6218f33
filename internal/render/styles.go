package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/janekbaraniewski/copilotspend/internal/seedrand"
)

// Catppuccin Mocha accents.
var (
	colorText     = lipgloss.Color("#CDD6F4")
	colorSubtext  = lipgloss.Color("#A6ADC8")
	colorDim      = lipgloss.Color("#585B70")
	colorAccent   = lipgloss.Color("#CBA6F7")
	colorBlue     = lipgloss.Color("#89B4FA")
	colorSapphire = lipgloss.Color("#74C7EC")
	colorGreen    = lipgloss.Color("#A6E3A1")
	colorYellow   = lipgloss.Color("#F9E2AF")
	colorRed      = lipgloss.Color("#F38BA8")
	colorPeach    = lipgloss.Color("#FAB387")
	colorTeal     = lipgloss.Color("#94E2D5")
	colorFlamingo = lipgloss.Color("#F2CDCD")
	colorLavender = lipgloss.Color("#B4BEFE")
	colorSky      = lipgloss.Color("#89DCEB")
	colorMaroon   = lipgloss.Color("#EBA0AC")
)

var categoryPalette = []lipgloss.Color{
	colorAccent,
	colorBlue,
	colorSapphire,
	colorGreen,
	colorYellow,
	colorRed,
	colorPeach,
	colorTeal,
	colorFlamingo,
	colorLavender,
	colorSky,
	colorMaroon,
}

var (
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorLavender)
	LabelStyle  = lipgloss.NewStyle().Foreground(colorSubtext)
	ValueStyle  = lipgloss.NewStyle().Foreground(colorText)
	DimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	WarnStyle   = lipgloss.NewStyle().Foreground(colorYellow)
	AccentStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
)

// CategoryColor returns a stable palette colour for a category name.
func CategoryColor(name string) lipgloss.Color {
	return categoryPalette[seedrand.Hash32(name)%uint32(len(categoryPalette))]
}
