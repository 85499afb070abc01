package testing

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/imamik/onboard/internal/registry"
	"github.com/imamik/onboard/internal/state"
)

// TestContext returns a context with a reasonable timeout for tests.
func TestContext(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// NewStore returns a state store in a fresh temporary directory.
func NewStore(t testing.TB, reg *registry.Registry) *state.Store {
	t.Helper()
	return state.NewStore(filepath.Join(t.TempDir(), "state.json"), reg.IDs())
}

// SeedState saves a state where the given phases have the given statuses and
// every other phase is not started.
func SeedState(t testing.TB, store *state.Store, reg *registry.Registry, statuses map[string]state.Status) *state.OnboardingState {
	t.Helper()
	st := state.New(reg.IDs())
	for id := range statuses {
		if _, ok := st.PhaseStatus[id]; !ok {
			t.Fatalf("seed: unknown phase %q", id)
		}
	}
	for _, id := range reg.IDs() {
		if status, ok := statuses[id]; ok {
			st.PhaseStatus[id] = status
			st.CurrentPhase = id
		}
	}
	if err := store.Save(st); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return st
}

// Completed returns a status map with the first n phases of reg completed.
func Completed(reg *registry.Registry, n int) map[string]state.Status {
	out := make(map[string]state.Status, n)
	for i, id := range reg.IDs() {
		if i >= n {
			break
		}
		out[id] = state.StatusCompleted
	}
	return out
}

// AssertContains fails the test if s does not contain substr.
func AssertContains(t testing.TB, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected %q to contain %q", s, substr)
	}
}
