package report

import "github.com/charmbracelet/lipgloss"

// Colors matching internal/ui/tui/styles.go palette.
var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	okStyle = lipgloss.NewStyle().
		Foreground(colorGreen)

	failStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	activeStyle = lipgloss.NewStyle().
			Foreground(colorYellow)
)

const (
	checkMark = "[OK]"
	crossMark = "[!!]"
	runMark   = "[..]"
	pending   = "[  ]"
	skipMark  = "[--]"
)
