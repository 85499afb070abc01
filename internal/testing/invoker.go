package testing

import (
	"context"
	"sync"
	"time"

	"github.com/imamik/onboard/internal/action"
)

// Call is one recorded invocation.
type Call struct {
	Spec    action.Spec
	Timeout time.Duration
	DryRun  bool
}

// FakeInvoker returns scripted results keyed by action name
// ("<phase>/forward" or "<phase>/rollback"). Unscripted actions succeed.
// Dry-run calls are recorded but always return a simulated success, like the
// real invoker.
type FakeInvoker struct {
	mu        sync.Mutex
	responses map[string][]action.Result
	hooks     map[string]func(ctx context.Context) action.Result
	calls     []Call
}

// NewFakeInvoker creates an invoker where every action succeeds.
func NewFakeInvoker() *FakeInvoker {
	return &FakeInvoker{
		responses: make(map[string][]action.Result),
		hooks:     make(map[string]func(ctx context.Context) action.Result),
	}
}

// Respond queues results for the named action. Each call consumes one
// result; the last one repeats.
func (f *FakeInvoker) Respond(name string, results ...action.Result) *FakeInvoker {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[name] = append(f.responses[name], results...)
	return f
}

// OnRun replaces the response for name with fn, which sees the run context.
func (f *FakeInvoker) OnRun(name string, fn func(ctx context.Context) action.Result) *FakeInvoker {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[name] = fn
	return f
}

// Reset clears scripted responses and recorded calls.
func (f *FakeInvoker) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = make(map[string][]action.Result)
	f.hooks = make(map[string]func(ctx context.Context) action.Result)
	f.calls = nil
}

// Run implements the invoker interface.
func (f *FakeInvoker) Run(ctx context.Context, spec action.Spec, timeout time.Duration, dryRun bool) action.Result {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Spec: spec, Timeout: timeout, DryRun: dryRun})
	if dryRun {
		f.mu.Unlock()
		return action.Result{Outcome: action.OutcomeSuccess, Simulated: true, Timeout: timeout}
	}
	hook := f.hooks[spec.Name]
	var res action.Result
	queue := f.responses[spec.Name]
	switch len(queue) {
	case 0:
		res = Succeeded()
	case 1:
		res = queue[0]
	default:
		res = queue[0]
		f.responses[spec.Name] = queue[1:]
	}
	f.mu.Unlock()

	if hook != nil {
		res = hook(ctx)
	}
	res.Timeout = timeout
	return res
}

// Calls returns every recorded call in order.
func (f *FakeInvoker) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Names returns the action names of every recorded call in order.
func (f *FakeInvoker) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, len(f.calls))
	for i, c := range f.calls {
		names[i] = c.Spec.Name
	}
	return names
}

// Count returns how often the named action was invoked.
func (f *FakeInvoker) Count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Spec.Name == name {
			n++
		}
	}
	return n
}

// Succeeded is a successful result.
func Succeeded() action.Result {
	return action.Result{Outcome: action.OutcomeSuccess, Duration: time.Millisecond}
}

// Failed is a failed result with the given exit code and stderr excerpt.
func Failed(code int, stderr string) action.Result {
	return action.Result{
		Outcome:  action.OutcomeFailure,
		ExitCode: code,
		Stderr:   stderr,
		Err:      &action.ExitError{Code: code},
		Duration: time.Millisecond,
	}
}

// TimedOut is a result for an action killed at its timeout.
func TimedOut() action.Result {
	return action.Result{Outcome: action.OutcomeTimedOut, ExitCode: -1, Err: context.DeadlineExceeded}
}

// Cancelled is a result for an action killed by an operator interrupt.
func Cancelled() action.Result {
	return action.Result{Outcome: action.OutcomeCancelled, ExitCode: -1, Err: context.Canceled}
}
