//go:build !unix

package action

import "os/exec"

func configureProcessGroup(_ *exec.Cmd) {}

func terminateGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func killGroup(_ *exec.Cmd) {}
