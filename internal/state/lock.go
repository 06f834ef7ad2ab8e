package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ErrLocked is returned when the state file's advisory lock is already
// held by another process. The caller may retry later; no partial work
// occurs.
var ErrLocked = errors.New("state is locked by another process")

// staleLockAge is how old a lock file must be before it is treated as
// abandoned by a crashed process and taken over.
const staleLockAge = 10 * time.Minute

// WithLock acquires an exclusive advisory lock scoped to the state file's
// path, runs fn, and releases the lock even if fn fails. A concurrent
// acquisition attempt fails fast with ErrLocked rather than blocking.
func (s *Store) WithLock(fn func() error) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	return fn()
}

func (s *Store) lock() error {
	lockPath := s.lockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	if err := s.tryCreateLock(lockPath); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	// Lock file exists. Take over only if it is clearly abandoned.
	info, err := os.Stat(lockPath)
	if err == nil && time.Since(info.ModTime()) > staleLockAge {
		_ = os.Remove(lockPath)
		if err := s.tryCreateLock(lockPath); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w (lock file: %s)", ErrLocked, lockPath)
}

func (s *Store) tryCreateLock(lockPath string) error {
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	fmt.Fprintf(f, "pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	return f.Close()
}

func (s *Store) unlock() {
	_ = os.Remove(s.lockPath())
}

func (s *Store) lockPath() string {
	return s.path + ".lock"
}
