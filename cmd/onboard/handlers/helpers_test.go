package handlers

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/imamik/onboard/internal/action"
	"github.com/imamik/onboard/internal/config"
)

// traceScript records its invocation and fails when a fail-<name> file exists next to it.
const traceScript = `#!/bin/sh
dir=$(dirname "$0")
name=$(basename "$0")
echo "$name $*" >> "$dir/trace"
if [ -f "$dir/fail-$name" ]; then
  echo "API unreachable." >&2
  exit 2
fi
exit 0
`

var scriptNames = []string{
	"validate-cluster-health.sh",
	"prepare-node.sh",
	"join-cluster.sh",
	"remove-node.sh",
	"validate-network.sh",
	"integrate-storage.sh",
	"detach-storage.sh",
	"register-gitops.sh",
	"deregister-gitops.sh",
	"wait-reconciliation.sh",
	"validate-node.sh",
}

// testProject is a temporary onboarding directory with tracing scripts.
type testProject struct {
	dir     string
	scripts string
	config  string
}

func newTestProject(t *testing.T, extraConfig string) *testProject {
	t.Helper()
	dir := t.TempDir()
	p := &testProject{
		dir:     dir,
		scripts: filepath.Join(dir, "scripts"),
		config:  filepath.Join(dir, "onboard.yaml"),
	}
	require.NoError(t, os.MkdirAll(p.scripts, 0o755))
	for _, name := range scriptNames {
		require.NoError(t, os.WriteFile(filepath.Join(p.scripts, name), []byte(traceScript), 0o755))
	}
	require.NoError(t, os.WriteFile(p.config, []byte("node:\n  name: worker-1\n"+extraConfig), 0o644))
	return p
}

// rewriteConfig replaces the whole configuration file.
func rewriteConfig(t *testing.T, p *testProject, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(p.config, []byte(content), 0o644))
}

func (p *testProject) global() GlobalOptions {
	return GlobalOptions{ConfigPath: p.config, NoTUI: true}
}

func (p *testProject) failScript(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(p.scripts, "fail-"+name), nil, 0o644))
}

func (p *testProject) fixScript(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, os.Remove(filepath.Join(p.scripts, "fail-"+name)))
}

// trace returns the names of the scripts invoked so far, in order.
func (p *testProject) trace(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(p.scripts, "trace"))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		names = append(names, strings.Fields(line)[0])
	}
	return names
}

func (p *testProject) statePath() string {
	return filepath.Join(p.dir, config.DefaultStateFile)
}

// saveAndRestoreFactories restores every factory variable after the test.
func saveAndRestoreFactories(t *testing.T) {
	t.Helper()
	origLoadConfig := loadConfig
	origNewLogger := newLogger
	origNewKubeClient := newKubeClient
	origNewKubeRunner := newKubeRunner
	origNewServerChecker := newServerChecker
	origNewSSHRunner := newSSHRunner
	origNewPublisher := newPublisher
	origConfirm := confirm
	origRunTUI := runTUI
	origCheckTools := checkTools
	origCheckPort := checkPort
	origNow := now
	origIsInteractiveTTY := isInteractiveTTY

	t.Cleanup(func() {
		loadConfig = origLoadConfig
		newLogger = origNewLogger
		newKubeClient = origNewKubeClient
		newKubeRunner = origNewKubeRunner
		newServerChecker = origNewServerChecker
		newSSHRunner = origNewSSHRunner
		newPublisher = origNewPublisher
		confirm = origConfirm
		runTUI = origRunTUI
		checkTools = origCheckTools
		checkPort = origCheckPort
		now = origNow
		isInteractiveTTY = origIsInteractiveTTY
	})
}

// stubFactories replaces collaborators that reach outside the test.
func stubFactories(t *testing.T) {
	t.Helper()
	saveAndRestoreFactories(t)
	isInteractiveTTY = func() bool { return false }
	newKubeRunner = func(*config.Config) (action.Runner, error) {
		return action.RunnerFunc(func(context.Context, action.Spec, io.Writer, io.Writer) error { return nil }), nil
	}
	now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }
}

// captureOutput captures stdout during the execution of f.
func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	var buf bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = io.Copy(&buf, r)
	}()

	f()

	_ = w.Close()
	os.Stdout = old
	wg.Wait()
	return buf.String()
}

// recordingPublisher stores uploads in memory.
type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.keys = append(p.keys, key)
	return "s3://reports/" + key, nil
}

func (p *recordingPublisher) List(context.Context, string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...), nil
}

func (p *recordingPublisher) Check(context.Context) error {
	return p.err
}
