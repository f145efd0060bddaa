//go:build !unix

package recipe

import "os/exec"

// setProcessGroup is a no-op: there are no process groups here, so only the
// direct child is killed on cancel.
func setProcessGroup(*exec.Cmd) {}

// killProcessGroup kills the child itself. An already-exited child reports
// os.ErrProcessDone, which exec treats as success.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
