package state

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a single phase.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// OnboardingState is the persisted progress of one onboarding.
//
// PhaseStatus always holds exactly the registered phase ids. The counters are
// derived and only change through Recount.
type OnboardingState struct {
	CurrentPhase string
	PhaseStatus  map[string]Status
	PhaseErrors  map[string]string

	CompletedCount int
	FailedCount    int
	TotalPhases    int

	LastUpdated time.Time

	// order preserves registry ordering for iteration.
	order []string
}

// New returns a fresh state with every phase not started.
func New(phaseIDs []string) *OnboardingState {
	s := &OnboardingState{
		PhaseStatus: make(map[string]Status, len(phaseIDs)),
		PhaseErrors: make(map[string]string, len(phaseIDs)),
		order:       append([]string(nil), phaseIDs...),
	}
	for _, id := range phaseIDs {
		s.PhaseStatus[id] = StatusNotStarted
		s.PhaseErrors[id] = ""
	}
	s.Recount()
	return s
}

// PhaseIDs returns the phase ids in registry order.
func (s *OnboardingState) PhaseIDs() []string {
	return append([]string(nil), s.order...)
}

// Status returns the status of a phase.
func (s *OnboardingState) Status(id string) Status {
	return s.PhaseStatus[id]
}

// Error returns the recorded message of a phase.
func (s *OnboardingState) Error(id string) string {
	return s.PhaseErrors[id]
}

// Begin marks a phase as in progress and makes it the current phase.
func (s *OnboardingState) Begin(id string) error {
	if err := s.check(id); err != nil {
		return err
	}
	s.CurrentPhase = id
	s.PhaseStatus[id] = StatusInProgress
	return nil
}

// Complete marks a phase completed. note is kept in phase_errors; pass "" to clear it.
func (s *OnboardingState) Complete(id, note string) error {
	if err := s.check(id); err != nil {
		return err
	}
	s.CurrentPhase = id
	s.PhaseStatus[id] = StatusCompleted
	s.PhaseErrors[id] = note
	return nil
}

// Fail marks a phase failed with the given message.
func (s *OnboardingState) Fail(id, message string) error {
	if err := s.check(id); err != nil {
		return err
	}
	s.CurrentPhase = id
	s.PhaseStatus[id] = StatusFailed
	s.PhaseErrors[id] = message
	return nil
}

func (s *OnboardingState) check(id string) error {
	if _, ok := s.PhaseStatus[id]; !ok {
		return fmt.Errorf("unknown phase %q", id)
	}
	return nil
}

// Recount recomputes the derived counters from PhaseStatus.
func (s *OnboardingState) Recount() {
	s.CompletedCount = 0
	s.FailedCount = 0
	for _, st := range s.PhaseStatus {
		switch st {
		case StatusCompleted:
			s.CompletedCount++
		case StatusFailed:
			s.FailedCount++
		}
	}
	s.TotalPhases = len(s.PhaseStatus)
}

// AllCompleted reports whether every phase is completed.
func (s *OnboardingState) AllCompleted() bool {
	for _, st := range s.PhaseStatus {
		if st != StatusCompleted {
			return false
		}
	}
	return len(s.PhaseStatus) > 0
}

// FailedPhase returns the first failed phase in registry order, or "".
func (s *OnboardingState) FailedPhase() string {
	for _, id := range s.order {
		if s.PhaseStatus[id] == StatusFailed {
			return id
		}
	}
	return ""
}

// CompletedPhases returns the completed phase ids in registry order.
func (s *OnboardingState) CompletedPhases() []string {
	var ids []string
	for _, id := range s.order {
		if s.PhaseStatus[id] == StatusCompleted {
			ids = append(ids, id)
		}
	}
	return ids
}

// Clone returns a deep copy.
func (s *OnboardingState) Clone() *OnboardingState {
	c := *s
	c.PhaseStatus = make(map[string]Status, len(s.PhaseStatus))
	for k, v := range s.PhaseStatus {
		c.PhaseStatus[k] = v
	}
	c.PhaseErrors = make(map[string]string, len(s.PhaseErrors))
	for k, v := range s.PhaseErrors {
		c.PhaseErrors[k] = v
	}
	c.order = append([]string(nil), s.order...)
	return &c
}
