package handlers

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/imamik/onboard/internal/onboarding"
)

// progressPrinter writes one plain line per step. It is used when the TUI is
// disabled or stdout is not a terminal.
type progressPrinter struct {
	w io.Writer
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) print(r onboarding.PhaseResult) {
	fmt.Fprintln(p.w, progressLine(r))
}

func progressLine(r onboarding.PhaseResult) string {
	prefix := fmt.Sprintf("[%d/%d] %s", r.Index, r.Total, r.PhaseID)
	if r.Rollback {
		prefix = fmt.Sprintf("[rollback %d/%d] %s", r.Index, r.Total, r.PhaseID)
	}

	var b strings.Builder
	b.WriteString(prefix)
	switch r.Status {
	case onboarding.StepStarted:
		b.WriteString(": " + r.DisplayName + " ...")
	case onboarding.StepCompleted:
		b.WriteString(": completed")
		if r.Simulated {
			b.WriteString(" (simulated)")
		}
		if r.Duration > 0 {
			fmt.Fprintf(&b, " in %s", r.Duration.Round(100*time.Millisecond))
		}
		if r.Attempts > 1 {
			fmt.Fprintf(&b, " after %d attempts", r.Attempts)
		}
	case onboarding.StepSkipped:
		b.WriteString(": skipped")
		if r.Message != "" {
			b.WriteString(" (" + strings.TrimPrefix(r.Message, "skipped: ") + ")")
		}
	case onboarding.StepFailed:
		fmt.Fprintf(&b, ": failed (%s)", r.Classification)
		if r.Message != "" {
			b.WriteString("\n    " + strings.ReplaceAll(strings.TrimSpace(r.Message), "\n", "\n    "))
		}
	}
	return b.String()
}
