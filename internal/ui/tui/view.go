package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/onboard/internal/onboarding"
)

// styleFunc is a single-string styling function.
type styleFunc func(string) string

// sf wraps a lipgloss.Style into a styleFunc.
func sf(s lipgloss.Style) styleFunc {
	return func(str string) string { return s.Render(str) }
}

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderPhases(&b, m)
	renderFooter(&b, m)

	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	verb := "onboarding"
	if m.Mode == ModeRollback {
		verb = "rollback"
	}
	title := fmt.Sprintf("onboard: %s %s", verb, m.Node)
	if m.DryRun {
		title += " (dry run)"
	}
	b.WriteString(titleStyle.Render(title))

	status := " "
	switch {
	case m.Done && m.Err != nil:
		status += failedStyle.Render("Stopped")
	case m.Done:
		status += completedStyle.Render("Done")
	case m.Cancelling:
		status += interruptStyle.Render("Interrupting...")
	default:
		status += runningStyle.Render(currentSpinner(m.SpinnerFrame))
	}
	b.WriteString(status)
	b.WriteString("\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = m.Width - 30
		if barWidth < 10 {
			barWidth = 10
		}
	}
	filled := int(float64(barWidth) * progress)
	if filled > barWidth {
		filled = barWidth
	}

	bar := barDone.Render(strings.Repeat("█", filled)) +
		barTodo.Render(strings.Repeat("░", barWidth-filled))

	fmt.Fprintf(b, "  %s %d%%\n", bar, int(progress*100))
}

func renderPhases(b *strings.Builder, m Model) {
	section := "  Phases"
	if m.Mode == ModeRollback {
		section = "  Compensating actions"
	}
	b.WriteString(headingStyle.Render(section))
	b.WriteString("\n")

	for i, row := range m.Phases {
		icon, style := phaseIcon(row, m.SpinnerFrame)
		detail := ""
		switch row.Status {
		case onboarding.StepStarted:
			if !row.Started.IsZero() {
				detail = formatDuration(m.clock().Sub(row.Started))
			}
		case onboarding.StepCompleted:
			detail = formatDuration(row.Duration)
			if row.Simulated {
				detail = "simulated"
			}
		case onboarding.StepSkipped, onboarding.StepFailed:
			detail = firstLine(row.Message)
		}
		fmt.Fprintf(b, "    %s %d. %-28s %s\n", style(icon), i+1, style(row.Name), dimStyle.Render(detail))
	}
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := formatDuration(m.clock().Sub(m.StartTime))
	hint := "ctrl+c: interrupt"
	if m.Done {
		hint = "q: quit"
	}
	b.WriteString(footerStyle.Render(fmt.Sprintf("  elapsed: %s  |  %s", elapsed, hint)))
	b.WriteString("\n")
}

// Helper functions

func phaseIcon(row PhaseRow, frame int) (string, styleFunc) {
	switch row.Status {
	case onboarding.StepCompleted:
		return checkMark, sf(completedStyle)
	case onboarding.StepFailed:
		return crossMark, sf(failedStyle)
	case onboarding.StepSkipped:
		return skipMark, sf(dimStyle)
	case onboarding.StepStarted:
		return currentSpinner(frame), sf(runningStyle)
	}
	return pending, sf(dimStyle)
}

func currentSpinner(frame int) string {
	if len(spinnerFrames) == 0 {
		return spinner
	}
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

func calculateProgress(m Model) float64 {
	if len(m.Phases) == 0 {
		if m.Done {
			return 1.0
		}
		return 0
	}
	finished := 0
	for _, row := range m.Phases {
		if row.Status == onboarding.StepCompleted || row.Status == onboarding.StepSkipped {
			finished++
		}
	}
	return float64(finished) / float64(len(m.Phases))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
