package state

import (
	"errors"
	"fmt"
)

var (
	// ErrNoState is returned by Load when no state file exists.
	ErrNoState = errors.New("no onboarding state found")

	// ErrStateCorruption marks a state file that exists but cannot be trusted.
	ErrStateCorruption = errors.New("onboarding state is corrupt")

	// ErrConcurrencyConflict marks a live lock held by another process.
	ErrConcurrencyConflict = errors.New("another onboarding run holds the state lock")
)

// CorruptionError describes why a state file was rejected.
type CorruptionError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CorruptionError) Error() string {
	msg := fmt.Sprintf("state file %s is corrupt: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStateCorruption) hold.
func (e *CorruptionError) Is(target error) bool { return target == ErrStateCorruption }

// LockError reports a lock held by a running process.
type LockError struct {
	Path string
	PID  int
}

func (e *LockError) Error() string {
	if e.PID <= 0 {
		return fmt.Sprintf("state lock %s is held by another process", e.Path)
	}
	return fmt.Sprintf("state lock %s is held by running process %d", e.Path, e.PID)
}

// Is makes errors.Is(err, ErrConcurrencyConflict) hold.
func (e *LockError) Is(target error) bool { return target == ErrConcurrencyConflict }
