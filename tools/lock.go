package tools

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const lockFile = "search/index.lock"

var (
	lockTimeout   = 5 * time.Second
	lockRetryWait = 500 * time.Millisecond
)

// isProcessRunning is implemented in lock_unix.go and lock_windows.go

// cleanStaleLock removes the lock file if the owning process is gone
func cleanStaleLock() error {
	lockPath := filepath.Join(dataDir, lockFile)

	// Read lock file
	data, err := os.ReadFile(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read lock file: %w", err)
	}

	// An empty file is a lock another process has created but not written yet
	content := strings.TrimSpace(string(data))
	if content == "" {
		if info, err := os.Stat(lockPath); err == nil && time.Since(info.ModTime()) < lockTimeout {
			return fmt.Errorf("lock is being created by another process")
		}
	}

	// Parse PID
	pid, err := strconv.Atoi(content)
	if err != nil {
		log.Printf("Warning: Corrupted lock file (invalid PID), removing...")
		return os.Remove(lockPath)
	}

	// Check if process is still running
	if isProcessRunning(pid) {
		return fmt.Errorf("lock held by running process %d", pid)
	}

	log.Printf("Stale lock detected (PID %d not running), cleaning...", pid)
	return os.Remove(lockPath)
}

// createLockFile creates the lock file holding pid. It fails with an
// os.ErrExist error when the file already exists.
func createLockFile(lockPath string, pid int) error {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(strconv.Itoa(pid)); err != nil {
		f.Close()
		os.Remove(lockPath)
		return err
	}
	return f.Close()
}

// acquireLock takes the inter-process index lock, waiting up to lockTimeout
// for another live process to release it. Reentrant for the current process.
func acquireLock() error {
	lockPath := filepath.Join(dataDir, lockFile)
	ourPID := os.Getpid()

	// Already ours
	if pid, ok := lockOwner(lockPath); ok && pid == ourPID {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	startTime := time.Now()
	for {
		// Try to create lock file with our PID
		err := createLockFile(lockPath, ourPID)
		if err == nil {
			log.Printf("✓ Index lock acquired (PID %d)", ourPID)
			return nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("failed to create lock file: %w", err)
		}

		// Lock exists: remove it if stale, otherwise wait for the owner
		if err := cleanStaleLock(); err != nil {
			elapsed := time.Since(startTime)
			if elapsed >= lockTimeout {
				return fmt.Errorf("timeout waiting for index lock after %v: %w", elapsed, err)
			}

			log.Printf("Index locked by another process, waiting... (%v elapsed)", elapsed.Round(100*time.Millisecond))
			time.Sleep(lockRetryWait)
		}
	}
}

// releaseLock removes the lock file if this process owns it
func releaseLock() error {
	lockPath := filepath.Join(dataDir, lockFile)

	if _, err := os.Stat(lockPath); os.IsNotExist(err) {
		return nil
	}

	// Verify it's our lock
	if pid, ok := lockOwner(lockPath); ok && pid != os.Getpid() {
		log.Printf("Warning: Lock file contains different PID (%d vs %d), not removing", pid, os.Getpid())
		return nil
	}

	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	log.Printf("✓ Index lock released")
	return nil
}

// lockOwner returns the PID recorded in the lock file
func lockOwner(lockPath string) (int, bool) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}
