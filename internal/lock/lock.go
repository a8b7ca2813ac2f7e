// Package lock keeps a single editor per data directory.
package lock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/schemacanvas/schemacanvas/internal/config"
)

const DefaultPath = "~/.schemacanvas/schemacanvas.lock"

// HeldError reports a lock owned by another live process.
type HeldError struct {
	PID  int
	Path string
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("another schemacanvas editor is running (PID %d); only one may own %s", e.PID, filepath.Dir(e.Path))
}

func resolve(path string) string {
	if path == "" {
		return config.ExpandHome(DefaultPath)
	}
	return path
}

// Acquire creates the lock file holding the current PID. Re-acquiring from
// the owning process succeeds. A lock whose owner is gone, or whose content is
// not a PID, is taken over.
func Acquire(path string) error {
	path = resolve(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}

	// a second pass is needed only after removing a stale lock
	for range 2 {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
			return errors.Join(werr, f.Close())
		}
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("creating lock: %w", err)
		}

		held, pid, err := IsHeld(path)
		if err != nil {
			return fmt.Errorf("checking lock: %w", err)
		}
		if held {
			if pid == os.Getpid() {
				return nil
			}
			return &HeldError{PID: pid, Path: path}
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing stale lock: %w", err)
		}
	}
	return fmt.Errorf("lock %s was taken while acquiring it", path)
}

// Release removes the lock file. A missing file is not an error.
func Release(path string) error {
	err := os.Remove(resolve(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// IsHeld reports whether the lock file names a running process, and which.
func IsHeld(path string) (bool, int, error) {
	data, err := os.ReadFile(resolve(path))
	if errors.Is(err, fs.ErrNotExist) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, 0, nil
	}
	return alive(pid), pid, nil
}

func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	// EPERM means the process exists under another user
	return err == nil || errors.Is(err, syscall.EPERM)
}
