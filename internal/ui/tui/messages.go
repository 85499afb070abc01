// Package tui provides a Bubble Tea progress view for onboarding and rollback runs.
package tui

import "github.com/imamik/onboard/internal/onboarding"

// PhaseMsg reports a phase starting, finishing or being skipped.
type PhaseMsg struct {
	Result onboarding.PhaseResult
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// DoneMsg signals that the run returned, with its error if any.
type DoneMsg struct{ Err error }
