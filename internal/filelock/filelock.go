// Package filelock acquires advisory whole-file locks with bounded retry.
//
// Locks are advisory: they only exclude callers that go through this package
// (or otherwise use flock(2) on the same file). A process that writes the
// file directly is not stopped.
package filelock

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"
)

const (
	// DefaultTimeout bounds the total time spent trying to acquire a lock.
	DefaultTimeout = 5000 * time.Millisecond
	// DefaultRetryInterval is the wait between two non-blocking attempts.
	DefaultRetryInterval = 100 * time.Millisecond
)

var (
	// ErrLockTimeout means the lock stayed contended for the whole timeout.
	// Callers may retry after a backoff.
	ErrLockTimeout = errors.New("filelock: timed out waiting for lock")

	// ErrLockInterrupted means the caller's context was cancelled while
	// waiting. It is not retryable.
	ErrLockInterrupted = errors.New("filelock: interrupted while waiting for lock")

	// ErrUnsupported is returned on platforms without flock(2).
	ErrUnsupported = errors.New("filelock: not supported on this platform")
)

// Mode selects shared or exclusive locking.
type Mode int

const (
	// Shared locks may be held by many readers at once.
	Shared Mode = iota
	// Exclusive locks exclude every other holder, shared or exclusive.
	Exclusive
)

func (m Mode) String() string {
	switch m {
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	}
	return "unknown"
}

type options struct {
	timeout       time.Duration
	retryInterval time.Duration
}

// Option customises Acquire.
type Option func(*options)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetryInterval overrides DefaultRetryInterval. Non-positive values are ignored.
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retryInterval = d
		}
	}
}

// Lock is a held lock on an open file.
type Lock struct {
	mu   sync.Mutex
	f    *os.File
	mode Mode
	held bool
}

// Mode returns the mode the lock was acquired with.
func (l *Lock) Mode() Mode { return l.mode }

// Acquire locks f in the given mode. It makes a non-blocking attempt, and on
// contention sleeps for the retry interval and tries again until the timeout
// measured from the first attempt elapses.
func Acquire(ctx context.Context, f *os.File, mode Mode, opts ...Option) (*Lock, error) {
	o := options{timeout: DefaultTimeout, retryInterval: DefaultRetryInterval}
	for _, opt := range opts {
		opt(&o)
	}

	deadline := time.Now().Add(o.timeout)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(ErrLockInterrupted, err)
		}
		ok, err := tryLock(f, mode)
		if err != nil {
			return nil, err
		}
		if ok {
			if attempt > 1 {
				slog.Debug("filelock: acquired after contention", "file", f.Name(), "mode", mode, "attempts", attempt)
			}
			return &Lock{f: f, mode: mode, held: true}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			slog.Debug("filelock: timed out", "file", f.Name(), "mode", mode, "attempts", attempt)
			return nil, ErrLockTimeout
		}
		wait := min(o.retryInterval, remaining)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, errors.Join(ErrLockInterrupted, ctx.Err())
		case <-t.C:
		}
	}
}

// Release drops the lock. It never fails: releasing twice, or after the file
// was closed (which drops the flock anyway), is a no-op.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return
	}
	l.held = false
	if err := unlock(l.f); err != nil {
		slog.Debug("filelock: release ignored", "file", l.f.Name(), "err", err)
	}
}

// IsRetryable reports whether err is a transient lock contention failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout) && !errors.Is(err, ErrLockInterrupted)
}
