//go:build !unix

package pty

import (
	"errors"
	"os/exec"
)

func isWouldBlock(err error) bool {
	return false
}

func isPTYClosed(err error) bool {
	return false
}

func waitExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, false
	}
	return exitErr.ExitCode(), true
}
