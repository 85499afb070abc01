package onboarding

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/imamik/onboard/internal/action"
	"github.com/imamik/onboard/internal/registry"
)

// Classification tags a failed phase for diagnostics.
type Classification string

const (
	ValidationFailure      Classification = "ValidationFailure"
	TimeoutFailure         Classification = "TimeoutFailure"
	ExternalCommandFailure Classification = "ExternalCommandFailure"
	Interrupted            Classification = "Interrupted"
)

// classify maps an action outcome onto the failure taxonomy.
func classify(p registry.Phase, r action.Result) Classification {
	switch r.Outcome {
	case action.OutcomeSuccess:
		return ""
	case action.OutcomeTimedOut:
		return TimeoutFailure
	case action.OutcomeCancelled:
		return Interrupted
	}
	if p.Validation {
		return ValidationFailure
	}
	return ExternalCommandFailure
}

// SkipNote is recorded in phase_errors for phases bypassed by --skip-validation.
const SkipNote = "skipped: operator override (--skip-validation)"

// InterruptedMessage is recorded for a phase cut short by an operator interrupt.
const InterruptedMessage = "interrupted by operator"

// StepStatus is the outcome of one step reported to the progress callback.
type StepStatus string

const (
	StepStarted   StepStatus = "started"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// PhaseResult describes one step of a run. The progress callback receives
// one result when a phase starts and one when it ends or is skipped.
type PhaseResult struct {
	PhaseID     string
	DisplayName string
	// Index is the 1-based position of the phase in the order it is visited.
	Index int
	Total int

	Status         StepStatus
	Classification Classification
	// Message is the error for failures and the reason for skips.
	Message  string
	Attempts int
	Duration time.Duration

	Simulated bool
	Rollback  bool
}

// ProgressFunc receives step results as they happen.
type ProgressFunc func(PhaseResult)

// Sentinel errors returned by the executor and rollback engine.
var (
	// ErrHalted is matched by every *HaltError.
	ErrHalted = errors.New("onboarding halted")
	// ErrInterrupted is matched when the operator interrupted the run.
	ErrInterrupted = errors.New("interrupted by operator")
	// ErrStateExists is returned when a fresh run finds saved progress.
	ErrStateExists = errors.New("saved onboarding state exists")
	// ErrRollbackIncomplete is matched by every *RollbackError.
	ErrRollbackIncomplete = errors.New("rollback incomplete")
	// ErrRollbackDeclined is returned when the operator declines the confirmation.
	ErrRollbackDeclined = errors.New("rollback declined by operator")
	// ErrConfirmationRequired is returned when rollback needs confirmation but no prompt is available.
	ErrConfirmationRequired = errors.New("rollback requires confirmation (use --yes for non-interactive runs)")
	// ErrNothingToRollBack is returned when no saved state exists.
	ErrNothingToRollBack = errors.New("no saved onboarding state to roll back")
)

// HaltError reports the phase that stopped a run.
type HaltError struct {
	Phase          string
	DisplayName    string
	Classification Classification
	Message        string
	StatePath      string
}

func (e *HaltError) Error() string {
	msg := fmt.Sprintf("phase %s failed (%s)", e.Phase, e.Classification)
	if e.Message != "" {
		msg += ": " + firstLine(e.Message)
	}
	return msg
}

// Is matches ErrHalted, and ErrInterrupted for interrupted phases.
func (e *HaltError) Is(target error) bool {
	if target == ErrHalted {
		return true
	}
	return target == ErrInterrupted && e.Classification == Interrupted
}

// Hint tells the operator where to look next.
func (e *HaltError) Hint() string {
	if e.Classification == Interrupted {
		return "re-run with --resume to continue from " + e.Phase
	}
	hint := "inspect the log file and run with --status; fix the cause and re-run with --resume"
	if e.StatePath != "" {
		hint += " (state: " + e.StatePath + ")"
	}
	return hint
}

// RollbackFailure records one compensating action that failed.
type RollbackFailure struct {
	Phase          string
	Classification Classification
	Message        string
}

// RollbackError reports every compensating action that failed.
type RollbackError struct {
	Failures  []RollbackFailure
	StatePath string
}

func (e *RollbackError) Error() string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.Phase
	}
	return fmt.Sprintf("rollback incomplete: %d compensating action(s) failed (%s); state file kept for inspection",
		len(e.Failures), strings.Join(ids, ", "))
}

// Is matches ErrRollbackIncomplete.
func (e *RollbackError) Is(target error) bool { return target == ErrRollbackIncomplete }

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
