package prerequisites

import (
	"fmt"

	"github.com/imamik/onboard/internal/registry"
)

// PhaseTools returns one required tool per distinct local command referenced
// by the phase table. Remote commands and built-in action kinds are not
// checked locally.
func PhaseTools(reg *registry.Registry) []Tool {
	var tools []Tool
	seen := make(map[string]bool)

	add := func(phase registry.Phase, a registry.Action, direction string) {
		if a.Kind != registry.KindCommand || a.Remote || a.Command == "" || seen[a.Command] {
			return
		}
		seen[a.Command] = true
		tools = append(tools, Tool{
			Name:        a.Command,
			Required:    true,
			Description: fmt.Sprintf("%s action of phase %s", direction, phase.ID),
		})
	}

	for _, p := range reg.Phases() {
		add(p, p.Forward, "forward")
		if p.Rollback != nil {
			add(p, *p.Rollback, "rollback")
		}
	}
	return tools
}
