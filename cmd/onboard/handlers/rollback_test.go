package handlers

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/onboard/internal/onboarding"
	"github.com/imamik/onboard/internal/registry"
)

func completedProject(t *testing.T) *testProject {
	t.Helper()
	p := newTestProject(t, "")
	captureOutput(func() {
		require.NoError(t, Run(context.Background(), RunOptions{GlobalOptions: p.global()}))
	})
	require.NoError(t, os.Remove(p.scripts+"/trace"))
	return p
}

func TestRollback_Yes(t *testing.T) {
	stubFactories(t)
	p := completedProject(t)

	var err error
	output := captureOutput(func() {
		err = Rollback(context.Background(), RollbackOptions{GlobalOptions: p.global(), Yes: true})
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"deregister-gitops.sh", "detach-storage.sh", "remove-node.sh"}, p.trace(t))
	assert.Contains(t, output, "Rollback complete; state file removed.")
	_, statErr := os.Stat(p.statePath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestRollback_IncompleteKeepsState(t *testing.T) {
	stubFactories(t)
	p := completedProject(t)
	p.failScript(t, "detach-storage.sh")

	var err error
	output := captureOutput(func() {
		err = Rollback(context.Background(), RollbackOptions{GlobalOptions: p.global(), Yes: true})
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, onboarding.ErrRollbackIncomplete)
	assert.Equal(t, ExitRollbackIncomplete, ExitCode(err))

	// The loop continues past the failure.
	assert.Equal(t, []string{"deregister-gitops.sh", "detach-storage.sh", "remove-node.sh"}, p.trace(t))
	assert.Contains(t, output, "1 compensating action(s) failed; state file kept for inspection.")
	_, statErr := os.Stat(p.statePath())
	assert.NoError(t, statErr)
}

func TestRollback_RequiresConfirmationWithoutTerminal(t *testing.T) {
	stubFactories(t)
	p := completedProject(t)

	err := Rollback(context.Background(), RollbackOptions{GlobalOptions: p.global()})
	require.Error(t, err)
	assert.ErrorIs(t, err, onboarding.ErrConfirmationRequired)
	assert.Empty(t, p.trace(t))
}

func TestRollback_Declined(t *testing.T) {
	stubFactories(t)
	p := completedProject(t)
	isInteractiveTTY = func() bool { return true }

	var asked []string
	confirm = func(_ context.Context, title, description string) (bool, error) {
		asked = append(asked, title, description)
		return false, nil
	}

	var err error
	output := captureOutput(func() {
		err = Rollback(context.Background(), RollbackOptions{GlobalOptions: p.global()})
	})
	require.NoError(t, err)
	require.Len(t, asked, 2)
	assert.Equal(t, "Roll back node worker-1?", asked[0])
	assert.Contains(t, asked[1], "GitOps registration")
	assert.Contains(t, output, "Rollback cancelled")
	assert.Empty(t, p.trace(t))
	assert.True(t, loadState(t, p).AllCompleted())
}

func TestRollback_DryRun(t *testing.T) {
	stubFactories(t)
	p := completedProject(t)

	var err error
	output := captureOutput(func() {
		err = Rollback(context.Background(), RollbackOptions{GlobalOptions: p.global(), DryRun: true})
	})
	require.NoError(t, err)
	assert.Contains(t, output, "Dry run: nothing was changed.")
	assert.Empty(t, p.trace(t))
	assert.True(t, loadState(t, p).AllCompleted())
}

func TestRollback_NoState(t *testing.T) {
	stubFactories(t)
	p := newTestProject(t, "")

	err := Rollback(context.Background(), RollbackOptions{GlobalOptions: p.global(), Yes: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, onboarding.ErrNothingToRollBack)
}

func TestRollbackDescription(t *testing.T) {
	t.Parallel()

	reg := registry.Default()
	phases := []registry.Phase{}
	for _, id := range []string{registry.PhaseGitOpsRegistration, registry.PhaseNodeReady} {
		ph, err := reg.PhaseByID(id)
		require.NoError(t, err)
		phases = append(phases, ph)
	}

	desc := rollbackDescription(phases)
	assert.Contains(t, desc, "GitOps registration: deregister-gitops.sh")
	assert.Contains(t, desc, "Node readiness: nothing to undo")
	assert.Equal(t, "No phase is completed; nothing will run.", rollbackDescription(nil))
}
