package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/onboard/internal/registry"
	"github.com/imamik/onboard/internal/state"
)

// RollbackOptions selects the behaviour of one rollback run.
type RollbackOptions struct {
	// DryRun simulates every compensating action and keeps the state file.
	DryRun bool
	// Yes skips the confirmation prompt.
	Yes bool
}

// RollbackSummary is the outcome of a rollback run.
type RollbackSummary struct {
	// State is the state the rollback started from; it is never modified.
	State    *state.OnboardingState
	Results  []PhaseResult
	Failures []RollbackFailure
	// StateDeleted is set when every compensation succeeded and the state file was removed.
	StateDeleted bool
	DryRun       bool
	Duration     time.Duration
}

// RollbackEngine compensates completed phases in reverse registry order.
type RollbackEngine struct {
	registry *registry.Registry
	store    Store
	invoker  Invoker
	settings
}

// NewRollbackEngine creates a rollback engine.
func NewRollbackEngine(reg *registry.Registry, store Store, invoker Invoker, opts ...Option) *RollbackEngine {
	r := &RollbackEngine{registry: reg, store: store, invoker: invoker, settings: defaultSettings()}
	for _, opt := range opts {
		opt(&r.settings)
	}
	return r
}

// Targets returns the completed phases of st in the order they would be compensated.
func (r *RollbackEngine) Targets(st *state.OnboardingState) []registry.Phase {
	var out []registry.Phase
	for _, p := range r.registry.Reversed() {
		if st.Status(p.ID) == state.StatusCompleted {
			out = append(out, p)
		}
	}
	return out
}

// Run rolls back every completed phase. A failing compensation is recorded
// and the loop continues. The state file is deleted only when every
// compensation succeeded; otherwise a *RollbackError is returned and the
// file is left for inspection.
func (r *RollbackEngine) Run(ctx context.Context, opts RollbackOptions) (*RollbackSummary, error) {
	start := time.Now()
	obs := r.observer.WithFields(map[string]string{"node": r.node.Name, "mode": "rollback"})

	lock, err := r.store.Lock()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			obs.Printf("failed to release lock %s: %v", lock.Path(), err)
		}
	}()
	if lock.Stale {
		obs.Printf("replaced stale lock %s left by process %d", lock.Path(), lock.StalePID)
	}

	st, err := r.store.Load()
	if errors.Is(err, state.ErrNoState) {
		return nil, fmt.Errorf("%w at %s", ErrNothingToRollBack, r.store.Path())
	}
	if err != nil {
		return nil, err
	}

	targets := r.Targets(st)
	summary := &RollbackSummary{State: st, DryRun: opts.DryRun}
	defer func() { summary.Duration = time.Since(start) }()

	if !opts.Yes && !opts.DryRun {
		if r.confirm == nil {
			return summary, ErrConfirmationRequired
		}
		ok, err := r.confirm(ctx, targets)
		if err != nil {
			return summary, fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			return summary, ErrRollbackDeclined
		}
	}

	emit(obs, EventRollbackStarted, "", fmt.Sprintf("rolling back %d completed phase(s)", len(targets)), map[string]string{
		"dry_run": fmt.Sprint(opts.DryRun),
	})

	for i, p := range targets {
		base := PhaseResult{
			PhaseID:     p.ID,
			DisplayName: p.DisplayName,
			Index:       i + 1,
			Total:       len(targets),
			Rollback:    true,
			Simulated:   opts.DryRun,
		}

		if ctx.Err() != nil {
			emit(obs, EventRunHalted, p.ID, "rollback interrupted; state file kept", nil)
			r.metrics.observeRun(r.node.Name, "rollback", false, 0)
			return summary, fmt.Errorf("%w during rollback before phase %s; state file kept", ErrInterrupted, p.ID)
		}

		if !p.HasRollback() {
			res := base
			res.Status, res.Message = StepSkipped, "no rollback action"
			r.record(summary, obs, res)
			continue
		}

		started := base
		started.Status = StepStarted
		emit(obs, EventRollbackStarted, p.ID, "compensating "+p.DisplayName, map[string]string{"action": p.Rollback.String()})
		r.report(started)

		spec := buildSpec(p, *p.Rollback, r.node, directionRollback, false)
		out := r.invoker.Run(ctx, spec, r.rollbackTimeout, opts.DryRun)

		res := base
		res.Attempts = 1
		res.Duration = out.Duration
		if out.Succeeded() {
			res.Status = StepCompleted
		} else {
			res.Status = StepFailed
			res.Classification = classify(p, out)
			if res.Classification == ValidationFailure {
				res.Classification = ExternalCommandFailure
			}
			res.Message = out.Message()
			summary.Failures = append(summary.Failures, RollbackFailure{
				Phase:          p.ID,
				Classification: res.Classification,
				Message:        res.Message,
			})
		}
		r.record(summary, obs, res)
	}

	if len(summary.Failures) > 0 {
		rerr := &RollbackError{Failures: summary.Failures, StatePath: r.store.Path()}
		emit(obs, EventRunHalted, "", rerr.Error(), nil)
		r.metrics.observeRun(r.node.Name, "rollback", false, 0)
		return summary, rerr
	}

	if !opts.DryRun {
		if err := r.store.Delete(); err != nil {
			return summary, fmt.Errorf("rollback succeeded but the state file could not be removed: %w", err)
		}
		summary.StateDeleted = true
		emit(obs, EventStateDeleted, "", "state file removed after full rollback", map[string]string{"path": r.store.Path()})
	}
	emit(obs, EventRollbackCompleted, "", "rollback completed", nil)
	r.metrics.observeRun(r.node.Name, "rollback", true, 0)
	return summary, nil
}

func (r *RollbackEngine) record(summary *RollbackSummary, obs Observer, res PhaseResult) {
	summary.Results = append(summary.Results, res)
	r.metrics.observeRollback(r.node.Name, res.PhaseID, res.Status)

	switch res.Status {
	case StepCompleted:
		msg := fmt.Sprintf("compensated in %v", res.Duration.Round(time.Millisecond))
		if res.Simulated {
			msg = "simulated"
		}
		emit(obs, EventRollbackCompleted, res.PhaseID, msg, nil)
	case StepSkipped:
		emit(obs, EventRollbackSkipped, res.PhaseID, res.Message, nil)
	case StepFailed:
		emit(obs, EventRollbackFailed, res.PhaseID, fmt.Sprintf("compensation failed (%s): %s", res.Classification, firstLine(res.Message)), nil)
	}
	r.report(res)
}
