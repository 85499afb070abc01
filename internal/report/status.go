package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/imamik/onboard/internal/onboarding"
	"github.com/imamik/onboard/internal/registry"
	"github.com/imamik/onboard/internal/state"
)

// Reporter renders state against the phase registry.
type Reporter struct {
	registry *registry.Registry
	node     string
}

// New creates a reporter for node.
func New(reg *registry.Registry, node string) *Reporter {
	return &Reporter{registry: reg, node: node}
}

// PhaseView is one row of a status or report.
type PhaseView struct {
	Order       int
	ID          string
	DisplayName string
	Status      state.Status
	// Error is the recorded failure message of a failed or interrupted phase.
	Error string
	// Note is the message recorded for a completed phase, e.g. an operator skip.
	Note string
}

// Phases returns one view per registered phase, in order.
func (r *Reporter) Phases(st *state.OnboardingState) []PhaseView {
	var out []PhaseView
	for _, p := range r.registry.Phases() {
		v := PhaseView{Order: p.Order, ID: p.ID, DisplayName: p.DisplayName, Status: st.Status(p.ID)}
		msg := st.Error(p.ID)
		if v.Status == state.StatusCompleted {
			v.Note = msg
		} else {
			v.Error = msg
		}
		out = append(out, v)
	}
	return out
}

// Status renders a compact status: a header, one line per phase and the counters.
func (r *Reporter) Status(st *state.OnboardingState, statePath string) string {
	var b strings.Builder

	b.WriteString("\n")
	title := "  onboard status"
	if r.node != "" {
		title += ": " + r.node
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("═", 40)))
	b.WriteString("\n\n")

	if st == nil {
		b.WriteString("  No onboarding in progress")
		if statePath != "" {
			b.WriteString(dimStyle.Render(" (no state at " + statePath + ")"))
		}
		b.WriteString("\n\n")
		return b.String()
	}

	for _, v := range r.Phases(st) {
		b.WriteString(statusLine(v))
		b.WriteString("\n")
		switch {
		case v.Error != "":
			b.WriteString(failStyle.Render("       error: " + indent(v.Error, "              ")))
			b.WriteString("\n")
		case v.Note != "":
			b.WriteString(dimStyle.Render("       note: " + v.Note))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("  Summary"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %d/%d completed, %d failed", st.CompletedCount, st.TotalPhases, st.FailedCount)
	if st.CurrentPhase != "" {
		fmt.Fprintf(&b, ", current phase %s", st.CurrentPhase)
	}
	b.WriteString("\n")
	if !st.LastUpdated.IsZero() {
		b.WriteString(dimStyle.Render("  last updated " + st.LastUpdated.Format(time.RFC3339)))
		b.WriteString("\n")
	}
	if hint := nextStep(st); hint != "" {
		b.WriteString("\n  " + hint + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

func statusLine(v PhaseView) string {
	mark, style := pending, dimStyle
	switch v.Status {
	case state.StatusCompleted:
		mark, style = checkMark, okStyle
		if v.Note != "" {
			mark = skipMark
		}
	case state.StatusFailed:
		mark, style = crossMark, failStyle
	case state.StatusInProgress:
		mark, style = runMark, activeStyle
	}
	return fmt.Sprintf("  %s %d. %-28s %s", style.Render(mark), v.Order, v.DisplayName, style.Render(string(v.Status)))
}

func nextStep(st *state.OnboardingState) string {
	switch {
	case st.AllCompleted():
		return "Onboarding complete."
	case st.FailedPhase() != "":
		return fmt.Sprintf("Phase %s failed. Fix the cause and run 'onboard --resume', or 'onboard --rollback' to undo.", st.FailedPhase())
	case st.CurrentPhase != "" && st.Status(st.CurrentPhase) == state.StatusInProgress:
		return fmt.Sprintf("Phase %s was interrupted. Run 'onboard --resume' to continue.", st.CurrentPhase)
	}
	return ""
}

func indent(s, prefix string) string {
	return strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n"+prefix)
}

// Rollback renders the outcome of a rollback run.
func Rollback(summary *onboarding.RollbackSummary) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("  Rollback"))
	b.WriteString("\n")
	if summary == nil || len(summary.Results) == 0 {
		b.WriteString("  Nothing to roll back: no phase was completed.\n")
	}
	if summary == nil {
		return b.String()
	}
	for _, r := range summary.Results {
		mark, style := checkMark, okStyle
		detail := "compensated"
		switch r.Status {
		case onboarding.StepSkipped:
			mark, style, detail = skipMark, dimStyle, r.Message
		case onboarding.StepFailed:
			mark, style, detail = crossMark, failStyle, fmt.Sprintf("%s: %s", r.Classification, r.Message)
		}
		if r.Simulated && r.Status == onboarding.StepCompleted {
			detail = "simulated"
		}
		fmt.Fprintf(&b, "  %s %-28s %s\n", style.Render(mark), r.DisplayName, style.Render(detail))
	}
	switch {
	case len(summary.Failures) > 0:
		fmt.Fprintf(&b, "\n  %s\n", failStyle.Render(fmt.Sprintf("%d compensating action(s) failed; state file kept for inspection.", len(summary.Failures))))
	case summary.StateDeleted:
		b.WriteString("\n  Rollback complete; state file removed.\n")
	case summary.DryRun:
		b.WriteString("\n  Dry run: nothing was changed.\n")
	}
	b.WriteString("\n")
	return b.String()
}
