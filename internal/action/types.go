package action

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Kind selects the Runner that carries out an action.
type Kind string

const (
	KindCommand             Kind = "command"
	KindKubeNodeReady       Kind = "kube-node-ready"
	KindHCloudServerRunning Kind = "hcloud-server-running"
)

// Spec is a fully resolved action ready to run.
type Spec struct {
	// Name labels the action in logs, e.g. "cluster_join/forward".
	Name    string
	Kind    Kind
	Command string
	Args    []string
	Env     []string
	Dir     string

	// Remote runs the command on the target node over SSH.
	Remote bool
	// Target is the node the action is about.
	Target string
}

// CommandLine renders the command and its arguments for display.
func (s Spec) CommandLine() string {
	if s.Kind != "" && s.Kind != KindCommand {
		return fmt.Sprintf("<%s %s>", s.Kind, s.Target)
	}
	return strings.Join(append([]string{s.Command}, s.Args...), " ")
}

// Runner carries out one kind of action. It must stop promptly when ctx is done.
// A non-zero exit is reported as an *ExitError.
type Runner interface {
	Run(ctx context.Context, spec Spec, stdout, stderr io.Writer) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, spec Spec, stdout, stderr io.Writer) error

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, spec Spec, stdout, stderr io.Writer) error {
	return f(ctx, spec, stdout, stderr)
}

// ExitError reports a non-zero exit status.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("exit code %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode extracts the exit code from err; 0 for nil and 1 for errors without one.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return 1
}

// Outcome classifies a finished action.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeCancelled Outcome = "cancelled"
)

// Result is the classified outcome of one invocation.
type Result struct {
	Outcome  Outcome
	ExitCode int
	// Stderr is an excerpt of the error stream.
	Stderr string
	// Stdout is an excerpt of the output stream.
	Stdout   string
	Duration time.Duration
	Timeout  time.Duration
	// Simulated is set for dry-run results.
	Simulated bool
	Err       error
}

// Succeeded reports whether the action succeeded.
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// Message summarizes a failed result for the persisted error map.
func (r Result) Message() string {
	switch r.Outcome {
	case OutcomeSuccess:
		return ""
	case OutcomeTimedOut:
		msg := fmt.Sprintf("timed out after %s", r.Timeout)
		if r.Stderr != "" {
			msg += ": " + r.Stderr
		}
		return msg
	case OutcomeCancelled:
		return "interrupted by operator"
	}
	if r.Stderr != "" {
		return r.Stderr
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return fmt.Sprintf("exit code %d", r.ExitCode)
}
