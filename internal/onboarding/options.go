package onboarding

import (
	"context"
	"time"

	"github.com/imamik/onboard/internal/registry"
	"github.com/imamik/onboard/internal/state"
)

// Store is the persistence the executor and rollback engine need. *state.Store implements it.
type Store interface {
	Path() string
	Lock() (*state.Lock, error)
	Load() (*state.OnboardingState, error)
	Save(st *state.OnboardingState) error
	Delete() error
}

// ConfirmFunc asks the operator to approve rolling back the listed phases,
// given in the order they will be compensated.
type ConfirmFunc func(ctx context.Context, phases []registry.Phase) (bool, error)

// DefaultRollbackTimeout bounds each compensating action.
const DefaultRollbackTimeout = 5 * time.Minute

type settings struct {
	observer        Observer
	metrics         *Metrics
	progress        ProgressFunc
	node            Node
	retryDelay      time.Duration
	rollbackTimeout time.Duration
	confirm         ConfirmFunc
}

func defaultSettings() settings {
	return settings{
		observer:        NopObserver{},
		retryDelay:      2 * time.Second,
		rollbackTimeout: DefaultRollbackTimeout,
	}
}

// Option configures an Executor or RollbackEngine.
type Option func(*settings)

// WithObserver sets the observer receiving events.
func WithObserver(o Observer) Option {
	return func(s *settings) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithMetrics records results into m.
func WithMetrics(m *Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithProgress registers a callback receiving one PhaseResult per step.
func WithProgress(fn ProgressFunc) Option {
	return func(s *settings) { s.progress = fn }
}

// WithNode sets the node passed to every action.
func WithNode(n Node) Option {
	return func(s *settings) { s.node = n }
}

// WithRetryDelay sets the initial backoff between retries of a phase.
func WithRetryDelay(d time.Duration) Option {
	return func(s *settings) { s.retryDelay = d }
}

// WithRollbackTimeout bounds each compensating action.
func WithRollbackTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.rollbackTimeout = d
		}
	}
}

// WithConfirm sets the confirmation prompt used by the rollback engine.
func WithConfirm(fn ConfirmFunc) Option {
	return func(s *settings) { s.confirm = fn }
}

func (s *settings) report(r PhaseResult) {
	s.observer.Progress(r.PhaseID, r.Index, r.Total)
	if s.progress != nil {
		s.progress(r)
	}
}
