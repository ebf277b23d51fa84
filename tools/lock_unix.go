//go:build unix

package tools

import (
	"errors"
	"syscall"
)

// isProcessRunning reports whether pid exists, probing it with signal 0
func isProcessRunning(pid int) bool {
	err := syscall.Kill(pid, syscall.Signal(0))
	switch {
	case err == nil:
		return true
	case errors.Is(err, syscall.EPERM):
		// Exists but owned by another user
		return true
	default:
		// ESRCH and anything unexpected
		return false
	}
}
