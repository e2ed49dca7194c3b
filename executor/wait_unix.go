//go:build unix

package executor

import (
	"errors"
	"os/exec"
	"syscall"
)

// waitForExit reports a child's exit code, or 128+signal when it died
// by signal (spec's supplemented "exit code propagation for signaled
// children" feature, §5 of SPEC_FULL.md), grounded in the teacher's
// interp package exit-status handling.
func waitForExit(c *exec.Cmd) (int32, error) {
	err := c.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return int32(128 + int(status.Signal())), nil
		}
		return int32(exitErr.ExitCode()), nil
	}
	return 1, nil
}
