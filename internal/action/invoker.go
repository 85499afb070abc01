package action

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// Invoker runs actions through kind-specific runners.
type Invoker struct {
	runners map[Kind]Runner
	remote  Runner
	log     logr.Logger
	now     func() time.Time
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithRunner registers the runner for a kind, replacing any default.
func WithRunner(kind Kind, r Runner) Option {
	return func(i *Invoker) {
		i.runners[kind] = r
	}
}

// WithRemoteRunner sets the runner used for commands marked Remote.
func WithRemoteRunner(r Runner) Option {
	return func(i *Invoker) {
		i.remote = r
	}
}

// WithLogger sets the logger. The default discards.
func WithLogger(l logr.Logger) Option {
	return func(i *Invoker) {
		i.log = l
	}
}

// NewInvoker returns an invoker with a local command runner registered.
func NewInvoker(opts ...Option) *Invoker {
	i := &Invoker{
		runners: map[Kind]Runner{
			KindCommand: NewLocalRunner(),
		},
		log: logr.Discard(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run executes spec once, bounded by timeout (zero means no bound).
//
// With dryRun set the action is only logged and a simulated success is returned;
// no runner is touched.
func (i *Invoker) Run(ctx context.Context, spec Spec, timeout time.Duration, dryRun bool) Result {
	log := i.log.WithValues("action", spec.Name, "kind", kindOrDefault(spec.Kind))

	if dryRun {
		log.Info("dry-run: would run", "command", spec.CommandLine(), "remote", spec.Remote, "timeout", timeout.String())
		return Result{Outcome: OutcomeSuccess, Simulated: true, Timeout: timeout}
	}

	runner, err := i.runnerFor(spec)
	if err != nil {
		log.Error(err, "no runner for action")
		return Result{Outcome: OutcomeFailure, ExitCode: 127, Err: err, Stderr: err.Error(), Timeout: timeout}
	}

	runCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	var stdout, stderr bytes.Buffer
	start := i.now()
	log.V(1).Info("running", "command", spec.CommandLine(), "timeout", timeout.String())
	runErr := runner.Run(runCtx, spec, &stdout, &stderr)
	res := Result{
		Duration: i.now().Sub(start),
		Timeout:  timeout,
		Stdout:   excerpt(stdout.String()),
		Stderr:   excerpt(stderr.String()),
		Err:      runErr,
	}

	switch {
	case ctx.Err() != nil:
		// The caller cancelled (operator interrupt) rather than the timeout firing.
		res.Outcome = OutcomeCancelled
		res.ExitCode = ExitCode(runErr)
	case runCtx.Err() != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.Outcome = OutcomeTimedOut
		res.ExitCode = ExitCode(runErr)
	case runErr == nil:
		res.Outcome = OutcomeSuccess
	default:
		res.Outcome = OutcomeFailure
		res.ExitCode = ExitCode(runErr)
		if res.Stderr == "" {
			res.Stderr = excerpt(runErr.Error())
		}
	}

	if res.Succeeded() {
		log.V(1).Info("action succeeded", "duration", res.Duration.String())
	} else {
		log.Info("action did not succeed", "outcome", string(res.Outcome), "exitCode", res.ExitCode, "duration", res.Duration.String())
	}
	return res
}

func (i *Invoker) runnerFor(spec Spec) (Runner, error) {
	kind := kindOrDefault(spec.Kind)
	if spec.Remote {
		if kind != KindCommand {
			return nil, fmt.Errorf("action %s: only commands can run remotely", spec.Name)
		}
		if i.remote == nil {
			return nil, fmt.Errorf("action %s: remote execution is not configured", spec.Name)
		}
		return i.remote, nil
	}
	r, ok := i.runners[kind]
	if !ok {
		return nil, fmt.Errorf("action %s: no runner for kind %q", spec.Name, kind)
	}
	return r, nil
}

func kindOrDefault(k Kind) Kind {
	if k == "" {
		return KindCommand
	}
	return k
}
