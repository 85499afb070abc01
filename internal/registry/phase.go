package registry

import (
	"strings"
	"time"
)

// Kind selects how an action is carried out.
type Kind string

const (
	// KindCommand runs an external command (locally, or on the node over SSH).
	KindCommand Kind = "command"
	// KindKubeNodeReady polls the Kubernetes API until the node reports Ready.
	KindKubeNodeReady Kind = "kube-node-ready"
	// KindHCloudServerRunning checks that the node's Hetzner server is running.
	KindHCloudServerRunning Kind = "hcloud-server-running"
)

// Valid reports whether k is a known action kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCommand, KindKubeNodeReady, KindHCloudServerRunning:
		return true
	}
	return false
}

// Action is a reference to something the orchestrator can invoke.
type Action struct {
	Kind    Kind
	Command string
	Args    []string

	// Remote runs the command on the node being onboarded instead of locally.
	Remote bool
}

// String renders the action the way it would appear on a command line.
func (a Action) String() string {
	if a.Kind != "" && a.Kind != KindCommand {
		return "<" + string(a.Kind) + ">"
	}
	parts := append([]string{a.Command}, a.Args...)
	s := strings.Join(parts, " ")
	if a.Remote {
		s = "remote: " + s
	}
	return s
}

// Phase is one ordered step of the onboarding pipeline.
type Phase struct {
	ID          string
	Order       int
	DisplayName string

	Forward Action
	// Rollback is nil when the phase has nothing to compensate.
	Rollback *Action

	// Timeout bounds the forward action.
	Timeout time.Duration

	// Skippable phases are bypassed by --skip-validation.
	Skippable bool
	// Validation phases report precondition failures rather than command failures.
	Validation bool
	// AutoFix phases receive --auto-fix when the operator asks for remediation.
	AutoFix bool
	// Retries is the number of extra attempts after a plain failure.
	Retries int
}

// HasRollback reports whether the phase declares a compensating action.
func (p Phase) HasRollback() bool {
	return p.Rollback != nil
}
