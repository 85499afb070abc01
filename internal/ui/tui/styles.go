package tui

import "github.com/charmbracelet/lipgloss"

// Phase state palette.
var (
	colorCompleted = lipgloss.Color("#22c55e")
	colorFailed    = lipgloss.Color("#ef4444")
	colorPending   = lipgloss.Color("#6b7280")
	colorRunning   = lipgloss.Color("#f9fafb")
	colorHeading   = lipgloss.Color("#3b82f6")
	colorInterrupt = lipgloss.Color("#eab308")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorRunning)
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colorHeading).MarginTop(1)
	footerStyle  = lipgloss.NewStyle().Foreground(colorPending).MarginTop(1)

	completedStyle = lipgloss.NewStyle().Foreground(colorCompleted)
	failedStyle    = lipgloss.NewStyle().Foreground(colorFailed)
	runningStyle   = lipgloss.NewStyle().Foreground(colorRunning).Bold(true)
	interruptStyle = lipgloss.NewStyle().Foreground(colorInterrupt)
	dimStyle       = lipgloss.NewStyle().Foreground(colorPending)

	barDone = lipgloss.NewStyle().Foreground(colorCompleted)
	barTodo = lipgloss.NewStyle().Foreground(colorPending)
)

// Row markers, same width so phase names line up.
const (
	checkMark = "[OK]"
	crossMark = "[!!]"
	spinner   = "[..]"
	pending   = "[  ]"
	skipMark  = "[--]"
)

var spinnerFrames = []string{"[.  ]", "[.. ]", "[...]", "[ ..]", "[  .]", "[   ]"}
