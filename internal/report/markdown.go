package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/imamik/onboard/internal/onboarding"
	"github.com/imamik/onboard/internal/state"
)

// Meta describes the run a Markdown report belongs to.
type Meta struct {
	Node        string
	RunID       string
	GeneratedAt time.Time
	StatePath   string
	LogFile     string
	DryRun      bool
	// Results are the step outcomes of the run that produced the report, if any.
	Results []onboarding.PhaseResult
}

// FileName returns the report file name for node at t.
func FileName(node string, t time.Time) string {
	if node == "" {
		node = "unknown"
	}
	return fmt.Sprintf("onboarding-report-%s-%s.md", node, t.Format("20060102-150405"))
}

// Markdown renders a report of st.
func (r *Reporter) Markdown(st *state.OnboardingState, meta Meta) string {
	var b strings.Builder

	node := meta.Node
	if node == "" {
		node = r.node
	}
	fmt.Fprintf(&b, "# Onboarding report: %s\n\n", node)
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Generated | %s |\n", meta.GeneratedAt.UTC().Format(time.RFC3339))
	if meta.RunID != "" {
		fmt.Fprintf(&b, "| Run ID | `%s` |\n", meta.RunID)
	}
	if meta.StatePath != "" {
		fmt.Fprintf(&b, "| State file | `%s` |\n", meta.StatePath)
	}
	if meta.LogFile != "" {
		fmt.Fprintf(&b, "| Log file | `%s` |\n", meta.LogFile)
	}
	if meta.DryRun {
		b.WriteString("| Mode | dry run |\n")
	}

	if st == nil {
		b.WriteString("\nNo onboarding state recorded.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "| Progress | %d/%d completed, %d failed |\n", st.CompletedCount, st.TotalPhases, st.FailedCount)
	if st.CurrentPhase != "" {
		fmt.Fprintf(&b, "| Current phase | `%s` |\n", st.CurrentPhase)
	}
	if !st.LastUpdated.IsZero() {
		fmt.Fprintf(&b, "| Last updated | %s |\n", st.LastUpdated.UTC().Format(time.RFC3339))
	}

	results := make(map[string]onboarding.PhaseResult, len(meta.Results))
	for _, res := range meta.Results {
		if res.Rollback {
			continue
		}
		results[res.PhaseID] = res
	}

	b.WriteString("\n## Phases\n\n")
	b.WriteString("| # | Phase | Status | Attempts | Duration |\n|---|---|---|---|---|\n")
	views := r.Phases(st)
	for _, v := range views {
		attempts, duration := "", ""
		if res, ok := results[v.ID]; ok {
			if res.Attempts > 0 {
				attempts = fmt.Sprintf("%d", res.Attempts)
			}
			if res.Duration > 0 {
				duration = res.Duration.Round(time.Millisecond).String()
			}
		}
		fmt.Fprintf(&b, "| %d | %s (`%s`) | %s | %s | %s |\n", v.Order, v.DisplayName, v.ID, v.Status, attempts, duration)
	}

	var errs, notes []PhaseView
	for _, v := range views {
		if v.Error != "" {
			errs = append(errs, v)
		}
		if v.Note != "" {
			notes = append(notes, v)
		}
	}
	if len(errs) > 0 {
		b.WriteString("\n## Errors\n")
		for _, v := range errs {
			fmt.Fprintf(&b, "\n### %s\n\n```\n%s\n```\n", v.ID, strings.TrimRight(v.Error, "\n"))
		}
	}
	if len(notes) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, v := range notes {
			fmt.Fprintf(&b, "- `%s`: %s\n", v.ID, v.Note)
		}
	}
	return b.String()
}

// Write stores content under dir and returns the file path.
func Write(dir, node string, t time.Time, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(dir, FileName(node, t))
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
