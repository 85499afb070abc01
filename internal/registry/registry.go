package registry

import (
	"errors"
	"fmt"
	"sort"
)

// ErrPhaseNotFound is returned when a phase id is not registered.
var ErrPhaseNotFound = errors.New("phase not found")

// Registry is an immutable, ordered set of phases.
type Registry struct {
	phases []Phase
	byID   map[string]int
}

// New validates phases and returns a registry ordered by Phase.Order.
//
// Orders must be contiguous starting at 1 and ids must be unique.
func New(phases []Phase) (*Registry, error) {
	if len(phases) == 0 {
		return nil, fmt.Errorf("registry requires at least one phase")
	}

	sorted := make([]Phase, len(phases))
	copy(sorted, phases)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	byID := make(map[string]int, len(sorted))
	for i, p := range sorted {
		if p.ID == "" {
			return nil, fmt.Errorf("phase at position %d has no id", i+1)
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate phase id %q", p.ID)
		}
		if p.Order != i+1 {
			return nil, fmt.Errorf("phase %q has order %d, expected %d (orders must be contiguous from 1)", p.ID, p.Order, i+1)
		}
		if err := validateAction(p.ID, "forward", p.Forward); err != nil {
			return nil, err
		}
		if p.Rollback != nil {
			if err := validateAction(p.ID, "rollback", *p.Rollback); err != nil {
				return nil, err
			}
		}
		if p.Timeout <= 0 {
			return nil, fmt.Errorf("phase %q must have a positive timeout", p.ID)
		}
		if p.Retries < 0 {
			return nil, fmt.Errorf("phase %q has negative retries", p.ID)
		}
		byID[p.ID] = i
	}

	return &Registry{phases: sorted, byID: byID}, nil
}

func validateAction(id, direction string, a Action) error {
	if !a.Kind.Valid() {
		return fmt.Errorf("phase %q %s action has unknown kind %q", id, direction, a.Kind)
	}
	if a.Kind == KindCommand && a.Command == "" {
		return fmt.Errorf("phase %q %s action has no command", id, direction)
	}
	return nil
}

// Phases returns the phases in forward order.
func (r *Registry) Phases() []Phase {
	out := make([]Phase, len(r.phases))
	copy(out, r.phases)
	return out
}

// Reversed returns the phases in rollback order.
func (r *Registry) Reversed() []Phase {
	out := make([]Phase, len(r.phases))
	for i, p := range r.phases {
		out[len(r.phases)-1-i] = p
	}
	return out
}

// PhaseByID looks up a phase.
func (r *Registry) PhaseByID(id string) (Phase, error) {
	i, ok := r.byID[id]
	if !ok {
		return Phase{}, fmt.Errorf("%w: %s", ErrPhaseNotFound, id)
	}
	return r.phases[i], nil
}

// IDs returns the phase ids in forward order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.phases))
	for i, p := range r.phases {
		ids[i] = p.ID
	}
	return ids
}

// Len returns the number of registered phases.
func (r *Registry) Len() int {
	return len(r.phases)
}
