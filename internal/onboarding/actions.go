package onboarding

import (
	"context"
	"time"

	"github.com/imamik/onboard/internal/action"
	"github.com/imamik/onboard/internal/registry"
)

// Invoker runs one action and classifies the result. *action.Invoker implements it.
type Invoker interface {
	Run(ctx context.Context, spec action.Spec, timeout time.Duration, dryRun bool) action.Result
}

// Node identifies the node being onboarded. It is passed to every action.
type Node struct {
	Name string
	Host string
	Role string
}

// Environment variables exported to every command action.
const (
	EnvNode      = "ONBOARD_NODE"
	EnvNodeHost  = "ONBOARD_NODE_HOST"
	EnvNodeRole  = "ONBOARD_NODE_ROLE"
	EnvPhase     = "ONBOARD_PHASE"
	EnvDirection = "ONBOARD_DIRECTION"
)

const (
	directionForward  = "forward"
	directionRollback = "rollback"
)

// buildSpec resolves a registry action into an invocable spec. Commands get
// --node <name>, plus --auto-fix when requested and the phase supports it.
func buildSpec(p registry.Phase, a registry.Action, node Node, direction string, autoFix bool) action.Spec {
	spec := action.Spec{
		Name:    p.ID + "/" + direction,
		Kind:    action.Kind(a.Kind),
		Command: a.Command,
		Remote:  a.Remote,
		Target:  node.Name,
		Env: []string{
			EnvNode + "=" + node.Name,
			EnvNodeHost + "=" + node.Host,
			EnvNodeRole + "=" + node.Role,
			EnvPhase + "=" + p.ID,
			EnvDirection + "=" + direction,
		},
	}
	if spec.Kind == "" {
		spec.Kind = action.KindCommand
	}
	if spec.Kind != action.KindCommand {
		return spec
	}

	args := append([]string(nil), a.Args...)
	if node.Name != "" {
		args = append(args, "--node", node.Name)
	}
	if autoFix && p.AutoFix && direction == directionForward {
		args = append(args, "--auto-fix")
	}
	spec.Args = args
	return spec
}
