package fsutil

import (
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/rossmacarthur/sheldon/pkg/errors"
	"github.com/rossmacarthur/sheldon/pkg/logging"
)

// Mutex is an advisory file lock guarding a data directory against
// concurrent sheldon invocations. It is coarser than the per-plugin
// concurrency inside a single run.
type Mutex struct {
	lock *flock.Flock
}

// AcquireMutex takes an exclusive advisory lock on a ".sheldon.lock" file in
// dir, blocking if another process currently holds it.
func AcquireMutex(dir string) (*Mutex, error) {
	logger := logging.Logger("fsutil")

	path := filepath.Join(dir, ".sheldon.lock")
	lock := flock.New(path)

	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrLockHeld, "failed to acquire file lock %q", path)
	}
	if !locked {
		logger.Warn().Str("path", path).Msg("Waiting for file lock held by another process")
		if err := lock.Lock(); err != nil {
			return nil, errors.Wrapf(err, errors.ErrLockHeld, "failed to acquire file lock %q", path)
		}
	}
	return &Mutex{lock: lock}, nil
}

// Release drops the lock. Safe to call on a nil Mutex.
func (m *Mutex) Release() {
	if m == nil || m.lock == nil {
		return
	}
	_ = m.lock.Unlock()
}
