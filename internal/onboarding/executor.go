package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/onboard/internal/action"
	"github.com/imamik/onboard/internal/registry"
	"github.com/imamik/onboard/internal/state"
	"github.com/imamik/onboard/internal/util/retry"
)

// RunOptions selects the behaviour of one executor run.
type RunOptions struct {
	// DryRun simulates every action. Nothing is written to the state file.
	DryRun bool
	// SkipValidation marks skippable phases completed without running them.
	SkipValidation bool
	// Resume continues from saved state, skipping completed phases.
	Resume bool
	// AutoFix forwards --auto-fix to phases that support remediation.
	AutoFix bool
}

// Summary is the outcome of an executor run.
type Summary struct {
	// State is the final state. For dry runs it is an in-memory copy.
	State *state.OnboardingState
	// Results holds the final result of every phase visited, in order.
	Results  []PhaseResult
	DryRun   bool
	Resumed  bool
	Duration time.Duration
}

// Completed reports whether every phase ended completed.
func (s *Summary) Completed() bool {
	return s != nil && s.State != nil && s.State.AllCompleted()
}

// Executor runs the phase registry forward.
type Executor struct {
	registry *registry.Registry
	store    Store
	invoker  Invoker
	settings
}

// NewExecutor creates an executor.
func NewExecutor(reg *registry.Registry, store Store, invoker Invoker, opts ...Option) *Executor {
	e := &Executor{registry: reg, store: store, invoker: invoker, settings: defaultSettings()}
	for _, opt := range opts {
		opt(&e.settings)
	}
	return e
}

// Run executes the pipeline. It returns a *HaltError (matching ErrHalted)
// when a phase fails; the summary is returned alongside it so callers can
// report the persisted state.
func (e *Executor) Run(ctx context.Context, opts RunOptions) (*Summary, error) {
	start := time.Now()
	obs := e.observer.WithFields(map[string]string{"node": e.node.Name})

	lock, err := e.store.Lock()
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

	st, resumed, err := e.loadState(opts, obs)
	if err != nil {
		return nil, err
	}

	persist := e.store.Save
	if opts.DryRun {
		st = st.Clone()
		persist = func(*state.OnboardingState) error { return nil }
	}

	summary := &Summary{State: st, DryRun: opts.DryRun, Resumed: resumed}
	defer func() { summary.Duration = time.Since(start) }()

	phases := e.registry.Phases()
	emit(obs, EventRunStarted, "", fmt.Sprintf("onboarding %d phases", len(phases)), map[string]string{
		"dry_run": fmt.Sprint(opts.DryRun),
		"resume":  fmt.Sprint(resumed),
	})

	for i, p := range phases {
		base := PhaseResult{PhaseID: p.ID, DisplayName: p.DisplayName, Index: i + 1, Total: len(phases), Simulated: opts.DryRun}

		if err := ctx.Err(); err != nil {
			emit(obs, EventRunHalted, p.ID, "interrupted before phase started", nil)
			e.metrics.observeRun(e.node.Name, "run", false, st.CompletedCount)
			return summary, fmt.Errorf("%w before phase %s", ErrInterrupted, p.ID)
		}

		if opts.Resume && st.Status(p.ID) == state.StatusCompleted {
			r := base
			r.Status, r.Message = StepSkipped, "already completed"
			e.finish(summary, obs, p, r)
			continue
		}

		if opts.SkipValidation && p.Skippable {
			if err := st.Complete(p.ID, SkipNote); err != nil {
				return summary, err
			}
			if err := persist(st); err != nil {
				return summary, fmt.Errorf("failed to save state after skipping %s: %w", p.ID, err)
			}
			r := base
			r.Status, r.Message = StepSkipped, SkipNote
			e.finish(summary, obs, p, r)
			continue
		}

		// The in-progress status is on disk before the action can change anything.
		if err := st.Begin(p.ID); err != nil {
			return summary, err
		}
		if err := persist(st); err != nil {
			return summary, fmt.Errorf("failed to save state before running %s: %w", p.ID, err)
		}
		started := base
		started.Status = StepStarted
		emit(obs, EventPhaseStarted, p.ID, "starting "+p.DisplayName, map[string]string{"action": p.Forward.String()})
		e.report(started)

		res, attempts := e.invoke(ctx, obs, p, opts)
		r := base
		r.Attempts = attempts
		r.Duration = res.Duration

		if res.Succeeded() {
			if err := st.Complete(p.ID, ""); err != nil {
				return summary, err
			}
			if err := persist(st); err != nil {
				return summary, fmt.Errorf("failed to save state after completing %s: %w", p.ID, err)
			}
			r.Status = StepCompleted
			e.finish(summary, obs, p, r)
			continue
		}

		r.Status = StepFailed
		r.Classification = classify(p, res)
		r.Message = res.Message()
		if err := st.Fail(p.ID, r.Message); err != nil {
			return summary, err
		}
		if err := persist(st); err != nil {
			return summary, fmt.Errorf("failed to save state after %s failed: %w", p.ID, err)
		}
		e.finish(summary, obs, p, r)

		halt := &HaltError{
			Phase:          p.ID,
			DisplayName:    p.DisplayName,
			Classification: r.Classification,
			Message:        r.Message,
			StatePath:      e.store.Path(),
		}
		st.Recount()
		emit(obs, EventRunHalted, p.ID, halt.Error(), map[string]string{"hint": halt.Hint()})
		e.metrics.observeRun(e.node.Name, "run", false, st.CompletedCount)
		return summary, halt
	}

	st.Recount()
	emit(obs, EventRunCompleted, "", fmt.Sprintf("all %d phases completed", st.TotalPhases), nil)
	e.metrics.observeRun(e.node.Name, "run", true, st.CompletedCount)
	return summary, nil
}

// loadState returns the saved state for resumed runs and a fresh state
// otherwise. A fresh run refuses to discard saved progress.
func (e *Executor) loadState(opts RunOptions, obs Observer) (*state.OnboardingState, bool, error) {
	st, err := e.store.Load()
	switch {
	case errors.Is(err, state.ErrNoState):
		if opts.Resume {
			obs.Printf("no saved state at %s; starting a fresh run", e.store.Path())
		}
		return state.New(e.registry.IDs()), false, nil
	case err != nil:
		return nil, false, err
	}

	if opts.Resume {
		return st, true, nil
	}
	if opts.DryRun {
		obs.Printf("saved state exists at %s; simulating a fresh run", e.store.Path())
		return state.New(e.registry.IDs()), false, nil
	}
	return nil, false, fmt.Errorf("%w at %s: use --resume to continue, --rollback to undo, or 'onboard cleanup' to discard it",
		ErrStateExists, e.store.Path())
}

// invoke runs the forward action of p, retrying plain failures up to p.Retries times.
func (e *Executor) invoke(ctx context.Context, obs Observer, p registry.Phase, opts RunOptions) (action.Result, int) {
	spec := buildSpec(p, p.Forward, e.node, directionForward, opts.AutoFix)

	var res action.Result
	attempts := 0
	// res carries the outcome of the last attempt; retryErr only reports that it failed.
	retryErr := retry.WithExponentialBackoff(ctx, func() error {
		attempts++
		res = e.invoker.Run(ctx, spec, p.Timeout, opts.DryRun)
		switch res.Outcome {
		case action.OutcomeSuccess:
			return nil
		case action.OutcomeTimedOut, action.OutcomeCancelled:
			return retry.Fatal(errors.New(res.Message()))
		}
		return errors.New(res.Message())
	},
		retry.WithMaxRetries(p.Retries),
		retry.WithInitialDelay(e.retryDelay),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			emit(obs, EventPhaseRetrying, p.ID, fmt.Sprintf("attempt %d failed, retrying in %s", attempt, delay), map[string]string{
				"error": firstLine(err.Error()),
			})
		}),
	)

	// Cancelled while waiting between attempts.
	if retryErr != nil && ctx.Err() != nil {
		res.Outcome = action.OutcomeCancelled
	}
	return res, attempts
}

// finish records the final result of a phase.
func (e *Executor) finish(summary *Summary, obs Observer, p registry.Phase, r PhaseResult) {
	summary.Results = append(summary.Results, r)
	e.metrics.observePhase(e.node.Name, p.ID, r.Status, r.Duration)

	switch r.Status {
	case StepCompleted:
		msg := fmt.Sprintf("completed in %v", r.Duration.Round(time.Millisecond))
		if r.Simulated {
			msg = "simulated"
		}
		emit(obs, EventPhaseCompleted, p.ID, msg, nil)
	case StepSkipped:
		emit(obs, EventPhaseSkipped, p.ID, r.Message, nil)
	case StepFailed:
		emit(obs, EventPhaseFailed, p.ID, fmt.Sprintf("failed (%s): %s", r.Classification, firstLine(r.Message)), map[string]string{
			"attempts": fmt.Sprint(r.Attempts),
		})
	}
	e.report(r)
}
