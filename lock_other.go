//go:build !unix && !windows

package revdoc

// Platforms without flock or LockFileEx run unlocked.
func (l *fileLock) lock() error   { return nil }
func (l *fileLock) unlock() error { return nil }
