// OS-level file locking for single-writer ownership.
//
// A Document takes an exclusive lock on its file for as long as it is open.
// The lock is non-blocking: a second Open of a locked file fails with
// ErrLocked instead of waiting, since the holder may keep it indefinitely.
package revdoc

import (
	"os"
)

// fileLock wraps flock(2) / LockFileEx on one file handle.
type fileLock struct {
	f    *os.File
	held bool
}

// Lock acquires the exclusive lock or fails with ErrLocked.
func (l *fileLock) Lock() error {
	if l.held {
		return nil
	}
	if err := l.lock(); err != nil {
		return err
	}
	l.held = true
	return nil
}

// Unlock releases the lock. It is a no-op when the lock is not held.
func (l *fileLock) Unlock() error {
	if !l.held {
		return nil
	}
	l.held = false
	return l.unlock()
}
