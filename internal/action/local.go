package action

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"
)

// DefaultKillGrace is how long a terminated process group gets before SIGKILL.
const DefaultKillGrace = 5 * time.Second

// LocalRunner executes commands on this host. The child runs in its own process
// group so a timeout or interrupt terminates everything it spawned.
type LocalRunner struct {
	KillGrace time.Duration
}

// NewLocalRunner returns a LocalRunner with the default kill grace period.
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{KillGrace: DefaultKillGrace}
}

// Run implements Runner.
func (r *LocalRunner) Run(ctx context.Context, spec Spec, stdout, stderr io.Writer) error {
	// #nosec G204 - commands come from the operator's phase configuration
	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	configureProcessGroup(cmd)
	cmd.Cancel = func() error { return terminateGroup(cmd) }
	cmd.WaitDelay = r.KillGrace

	err := cmd.Run()
	if ctx.Err() != nil {
		killGroup(cmd)
	}
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode(), Err: err}
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return &ExitError{Code: 127, Err: err}
	}
	if errors.Is(err, os.ErrNotExist) {
		return &ExitError{Code: 127, Err: err}
	}
	if errors.Is(err, os.ErrPermission) {
		return &ExitError{Code: 126, Err: err}
	}
	return err
}
