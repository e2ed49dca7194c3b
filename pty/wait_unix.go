//go:build unix

package pty

import (
	"errors"
	"os/exec"
	"syscall"
)

// isWouldBlock reports whether err is EAGAIN, the "would block" read
// error spec §4.9 says should be tolerated with a short sleep rather
// than treated as a terminal read failure.
func isWouldBlock(err error) bool {
	return errors.Is(err, syscall.EAGAIN)
}

// isPTYClosed reports whether err is the "input/output error" a PTY
// master yields once its slave has been closed by the exiting child —
// functionally an EOF for this worker's purposes, not a genuine read
// failure worth logging.
func isPTYClosed(err error) bool {
	return errors.Is(err, syscall.EIO)
}

// waitExitCode extracts a child's exit code from its Wait error,
// reporting ok=false when no exit code could be determined (spec §4.9
// "wait on the child, obtain the exit code (or none on error)").
func waitExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, false
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal()), true
	}
	return exitErr.ExitCode(), true
}
