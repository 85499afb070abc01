package testing

import (
	"fmt"
	"testing"
	"time"

	"github.com/imamik/onboard/internal/registry"
)

// RegistryBuilder provides a fluent interface for constructing test registries.
// Each method returns a new builder (immutable) for chaining.
type RegistryBuilder struct {
	phases []registry.Phase
}

// NewRegistryBuilder creates an empty builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{}
}

// PhaseID returns the id WithPhases gives the phase at order n.
func PhaseID(n int) string {
	return fmt.Sprintf("phase_%d", n)
}

// WithPhases replaces the phases with n command phases named phase_1..phase_n.
func (b *RegistryBuilder) WithPhases(n int) *RegistryBuilder {
	nb := &RegistryBuilder{}
	for i := 1; i <= n; i++ {
		nb.phases = append(nb.phases, registry.Phase{
			ID:          PhaseID(i),
			Order:       i,
			DisplayName: fmt.Sprintf("Phase %d", i),
			Forward:     registry.Action{Kind: registry.KindCommand, Command: fmt.Sprintf("forward-%d.sh", i)},
			Timeout:     time.Minute,
		})
	}
	return nb
}

// WithRollback gives the named phases a rollback command.
func (b *RegistryBuilder) WithRollback(ids ...string) *RegistryBuilder {
	return b.update(ids, func(p *registry.Phase) {
		p.Rollback = &registry.Action{Kind: registry.KindCommand, Command: "undo-" + p.ID + ".sh"}
	})
}

// WithRollbackAll gives every phase a rollback command.
func (b *RegistryBuilder) WithRollbackAll() *RegistryBuilder {
	return b.WithRollback(b.ids()...)
}

// Skippable marks the named phases skippable.
func (b *RegistryBuilder) Skippable(ids ...string) *RegistryBuilder {
	return b.update(ids, func(p *registry.Phase) { p.Skippable = true })
}

// Validation marks the named phases as validation phases.
func (b *RegistryBuilder) Validation(ids ...string) *RegistryBuilder {
	return b.update(ids, func(p *registry.Phase) { p.Validation = true })
}

// AutoFix marks the named phases as accepting --auto-fix.
func (b *RegistryBuilder) AutoFix(ids ...string) *RegistryBuilder {
	return b.update(ids, func(p *registry.Phase) { p.AutoFix = true })
}

// WithRetries sets the retry count of a phase.
func (b *RegistryBuilder) WithRetries(id string, n int) *RegistryBuilder {
	return b.update([]string{id}, func(p *registry.Phase) { p.Retries = n })
}

// WithTimeout sets the timeout of a phase.
func (b *RegistryBuilder) WithTimeout(id string, d time.Duration) *RegistryBuilder {
	return b.update([]string{id}, func(p *registry.Phase) { p.Timeout = d })
}

// Build returns the registry, failing the test if it is invalid.
func (b *RegistryBuilder) Build(t testing.TB) *registry.Registry {
	t.Helper()
	reg, err := registry.New(b.clone().phases)
	if err != nil {
		t.Fatalf("invalid test registry: %v", err)
	}
	return reg
}

// MustBuild returns the registry and panics if it is invalid.
func (b *RegistryBuilder) MustBuild() *registry.Registry {
	reg, err := registry.New(b.clone().phases)
	if err != nil {
		panic(err)
	}
	return reg
}

func (b *RegistryBuilder) ids() []string {
	ids := make([]string, len(b.phases))
	for i, p := range b.phases {
		ids[i] = p.ID
	}
	return ids
}

func (b *RegistryBuilder) update(ids []string, fn func(*registry.Phase)) *RegistryBuilder {
	nb := b.clone()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range nb.phases {
		if want[nb.phases[i].ID] {
			fn(&nb.phases[i])
		}
	}
	return nb
}

// clone creates a deep copy of the builder for immutability.
func (b *RegistryBuilder) clone() *RegistryBuilder {
	nb := &RegistryBuilder{phases: make([]registry.Phase, len(b.phases))}
	for i, p := range b.phases {
		p.Forward.Args = append([]string(nil), p.Forward.Args...)
		if p.Rollback != nil {
			rb := *p.Rollback
			rb.Args = append([]string(nil), rb.Args...)
			p.Rollback = &rb
		}
		nb.phases[i] = p
	}
	return nb
}
