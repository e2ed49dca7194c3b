//go:build !unix

package executor

import (
	"errors"
	"os/exec"
)

// waitForExit reports a child's exit code. Windows exit codes from the
// cmd.exe /c spawn path are opaque to signal information, so no signal
// is ever populated here (spec §6 resolved Open Question 1).
func waitForExit(c *exec.Cmd) (int32, error) {
	err := c.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return int32(exitErr.ExitCode()), nil
	}
	return 1, nil
}
