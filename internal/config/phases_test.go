package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/onboard/internal/registry"
)

func boolPtr(b bool) *bool { return &b }

func testConfig() *Config {
	cfg := Default()
	cfg.BaseDir = "/srv/onboard"
	cfg.Node.Name = "worker-4"
	return cfg
}

func TestRegistry_BuiltinScriptsResolveUnderScriptsDir(t *testing.T) {
	t.Parallel()

	reg, err := testConfig().Registry(nil)
	require.NoError(t, err)
	require.Equal(t, 9, reg.Len())

	join, err := reg.PhaseByID(registry.PhaseClusterJoin)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/onboard/scripts", "join-cluster.sh"), join.Forward.Command)
	require.NotNil(t, join.Rollback)
	assert.Equal(t, filepath.Join("/srv/onboard/scripts", "remove-node.sh"), join.Rollback.Command)

	ready, err := reg.PhaseByID(registry.PhaseNodeReady)
	require.NoError(t, err)
	assert.Equal(t, registry.KindKubeNodeReady, ready.Forward.Kind)
	assert.Empty(t, ready.Forward.Command)
}

func TestRegistry_Overrides(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Node.Host = "10.0.1.14"
	cfg.Phases = []PhaseOverride{
		{ID: registry.PhaseClusterJoin, Args: []string{"--token-file", "/etc/join"}, Retries: intPtr(2)},
		{ID: registry.PhaseNodePreparation, Remote: boolPtr(true)},
		{ID: registry.PhaseReconciliation, Command: "flux", Args: []string{"reconcile", "kustomization", "nodes"}},
		{ID: registry.PhasePostValidation, Command: "./hack/check.sh", AutoFix: boolPtr(false)},
		{ID: registry.PhaseGitOpsRegistration, RollbackCommand: "/usr/local/bin/git-revert-node"},
		{ID: registry.PhasePreValidation, Kind: string(registry.KindHCloudServerRunning), Skippable: boolPtr(false)},
	}
	require.NoError(t, cfg.Validate())

	reg, err := cfg.Registry(nil)
	require.NoError(t, err)

	get := func(id string) registry.Phase {
		p, err := reg.PhaseByID(id)
		require.NoError(t, err)
		return p
	}

	join := get(registry.PhaseClusterJoin)
	assert.Equal(t, []string{"--token-file", "/etc/join"}, join.Forward.Args)
	assert.Equal(t, 2, join.Retries)

	prep := get(registry.PhaseNodePreparation)
	assert.True(t, prep.Forward.Remote)
	assert.Equal(t, "scripts/prepare-node.sh", prep.Forward.Command)

	recon := get(registry.PhaseReconciliation)
	assert.Equal(t, "flux", recon.Forward.Command)

	post := get(registry.PhasePostValidation)
	assert.Equal(t, "/srv/onboard/hack/check.sh", post.Forward.Command)
	assert.False(t, post.AutoFix)

	gitops := get(registry.PhaseGitOpsRegistration)
	require.NotNil(t, gitops.Rollback)
	assert.Equal(t, "/usr/local/bin/git-revert-node", gitops.Rollback.Command)

	pre := get(registry.PhasePreValidation)
	assert.Equal(t, registry.KindHCloudServerRunning, pre.Forward.Kind)
	assert.False(t, pre.Skippable)
}

func TestRegistry_RemoteRequiresHost(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Phases = []PhaseOverride{{ID: registry.PhaseNodePreparation, Remote: boolPtr(true)}}

	_, err := cfg.Registry(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node.host")
}

func TestRegistry_RollbackArgsWithoutRollback(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Phases = []PhaseOverride{{ID: registry.PhaseNodeReady, RollbackArgs: []string{"x"}}}

	_, err := cfg.Registry(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rollback action")
}

func TestRegistry_CommandKindWithoutCommand(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Phases = []PhaseOverride{{ID: registry.PhaseNodeReady, Kind: string(registry.KindCommand)}}

	_, err := cfg.Registry(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command")
}

func TestRegistry_TimeoutPrecedence(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Phases = []PhaseOverride{
		{ID: registry.PhaseClusterJoin, Timeout: 30 * time.Minute},
		{ID: registry.PhaseStorageIntegration, Timeout: 30 * time.Minute},
	}
	timeouts := &Timeouts{
		Phase:   map[string]time.Duration{registry.PhaseStorageIntegration: 45 * time.Minute},
		Default: 7 * time.Minute,
	}

	reg, err := cfg.Registry(timeouts)
	require.NoError(t, err)

	for id, want := range map[string]time.Duration{
		registry.PhaseClusterJoin:        30 * time.Minute,
		registry.PhaseStorageIntegration: 45 * time.Minute,
		registry.PhaseNodeReady:          7 * time.Minute,
	} {
		p, err := reg.PhaseByID(id)
		require.NoError(t, err)
		assert.Equal(t, want, p.Timeout, id)
	}
}
