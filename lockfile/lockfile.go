package lockfile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// Mode selects the sharing semantics of a lock.
type Mode int

const (
	// Shared admits many concurrent readers and excludes writers.
	Shared Mode = iota
	// Exclusive admits a single writer and excludes everyone else.
	Exclusive
)

func (m Mode) String() string {
	switch m {
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// Options configures a Manager.
type Options struct {
	// Timeout is the maximum time Acquire waits for a contended lock.
	// Zero means fail immediately on contention.
	Timeout time.Duration

	// RetryInterval is the polling interval for the OS-level lock.
	// Default: 50ms.
	RetryInterval time.Duration
}

// DefaultOptions returns the default lock options: 60s timeout, 50ms polling.
func DefaultOptions() Options {
	return Options{
		Timeout:       60 * time.Second,
		RetryInterval: 50 * time.Millisecond,
	}
}

// Manager hands out locks keyed by sentinel file path.
//
// Contract:
// - Concurrency: safe for concurrent use by multiple goroutines.
// - Cross-process: two managers in different processes contend through the
//   OS lock on the sentinel file; within one process, goroutines contend
//   through an in-process gate first.
// - Errors: contended acquisition past the timeout yields a *TimeoutError;
//   the manager never retries internally.
type Manager struct {
	opts Options

	mu    sync.Mutex
	locks map[string]*pathLock
}

// NewManager creates a lock manager with the given options.
func NewManager(opts Options) *Manager {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 50 * time.Millisecond
	}
	return &Manager{
		opts:  opts,
		locks: make(map[string]*pathLock),
	}
}

// pathLock is the per-path lock state. The OS flock is held while any
// in-process holder exists; the first holder takes it, the last releases it.
type pathLock struct {
	mu        sync.Mutex
	readers   int
	writer    bool
	acquiring bool          // first holder is still taking the OS lock
	change    chan struct{} // closed and replaced on every state change
	holders   int
	os        *flock.Flock
}

// Handle represents a held lock. Release must be called exactly once.
type Handle struct {
	m    *Manager
	pl   *pathLock
	path string
	mode Mode

	mu       sync.Mutex
	released bool
}

// Path returns the sentinel path this handle locks.
func (h *Handle) Path() string { return h.path }

// Mode returns the mode the lock was acquired in.
func (h *Handle) Mode() Mode { return h.mode }

// Acquire takes a lock on path in the given mode, blocking up to the
// manager's configured timeout. The context can cancel the wait early.
func (m *Manager) Acquire(ctx context.Context, path string, mode Mode) (*Handle, error) {
	return m.acquire(ctx, path, mode, m.opts.Timeout)
}

// Try attempts a non-blocking acquisition. It reports ok=false when the
// lock is held elsewhere, without error.
func (m *Manager) Try(path string, mode Mode) (*Handle, bool, error) {
	h, err := m.acquire(context.Background(), path, mode, 0)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return h, true, nil
}

func (m *Manager) acquire(ctx context.Context, path string, mode Mode, timeout time.Duration) (*Handle, error) {
	path = normalize(path)
	pl := m.lockFor(path)
	deadline := time.Now().Add(timeout)

	for {
		pl.mu.Lock()
		if pl.admits(mode) {
			first := pl.holders == 0
			pl.reserve(mode, first)
			pl.mu.Unlock()

			if first {
				if err := m.acquireOS(ctx, pl, path, mode, deadline, timeout); err != nil {
					pl.mu.Lock()
					pl.unreserve(mode)
					pl.notifyLocked()
					pl.mu.Unlock()
					return nil, err
				}
				pl.mu.Lock()
				pl.acquiring = false
				pl.notifyLocked()
				pl.mu.Unlock()
			}
			return &Handle{m: m, pl: pl, path: path, mode: mode}, nil
		}
		ch := pl.change
		pl.mu.Unlock()

		if timeout == 0 {
			return nil, &TimeoutError{Path: path, Mode: mode, Timeout: timeout}
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, &TimeoutError{Path: path, Mode: mode, Timeout: timeout}
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ch:
			timer.Stop()
		case <-timer.C:
			return nil, &TimeoutError{Path: path, Mode: mode, Timeout: timeout}
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

// acquireOS takes the OS-level flock on behalf of the first in-process holder.
func (m *Manager) acquireOS(ctx context.Context, pl *pathLock, path string, mode Mode, deadline time.Time, timeout time.Duration) error {
	fl := flock.New(path)

	if timeout == 0 {
		var (
			ok  bool
			err error
		)
		if mode == Exclusive {
			ok, err = fl.TryLock()
		} else {
			ok, err = fl.TryRLock()
		}
		if err != nil {
			return fmt.Errorf("lockfile: locking %s: %w", path, err)
		}
		if !ok {
			return &TimeoutError{Path: path, Mode: mode, Timeout: timeout}
		}
	} else {
		lockCtx, cancel := context.WithDeadline(ctx, deadline)
		defer cancel()

		var (
			ok  bool
			err error
		)
		if mode == Exclusive {
			ok, err = fl.TryLockContext(lockCtx, m.opts.RetryInterval)
		} else {
			ok, err = fl.TryRLockContext(lockCtx, m.opts.RetryInterval)
		}
		if !ok {
			if err != nil && errors.Is(err, context.DeadlineExceeded) {
				return &TimeoutError{Path: path, Mode: mode, Timeout: timeout}
			}
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				return fmt.Errorf("lockfile: locking %s: %w", path, err)
			}
			return &TimeoutError{Path: path, Mode: mode, Timeout: timeout}
		}
	}

	pl.mu.Lock()
	pl.os = fl
	pl.mu.Unlock()
	return nil
}

// Release gives up the lock. The second release of a handle returns ErrNotHeld.
func (h *Handle) Release() error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return ErrNotHeld
	}
	h.released = true
	h.mu.Unlock()

	pl := h.pl
	pl.mu.Lock()
	defer pl.mu.Unlock()

	pl.unreserve(h.mode)
	var err error
	if pl.holders == 0 && pl.os != nil {
		if uerr := pl.os.Unlock(); uerr != nil {
			err = fmt.Errorf("lockfile: unlocking %s: %w", h.path, uerr)
		}
		pl.os = nil
	}
	pl.notifyLocked()
	return err
}

// admits reports whether a new holder in the given mode may enter now.
func (pl *pathLock) admits(mode Mode) bool {
	if pl.acquiring || pl.writer {
		return false
	}
	if mode == Exclusive {
		return pl.readers == 0
	}
	return true
}

func (pl *pathLock) reserve(mode Mode, first bool) {
	if mode == Exclusive {
		pl.writer = true
	} else {
		pl.readers++
	}
	pl.holders++
	if first {
		pl.acquiring = true
	}
}

func (pl *pathLock) unreserve(mode Mode) {
	if mode == Exclusive {
		pl.writer = false
	} else {
		pl.readers--
	}
	pl.holders--
	pl.acquiring = false
}

func (pl *pathLock) notifyLocked() {
	close(pl.change)
	pl.change = make(chan struct{})
}

func (m *Manager) lockFor(path string) *pathLock {
	m.mu.Lock()
	defer m.mu.Unlock()

	pl, ok := m.locks[path]
	if !ok {
		pl = &pathLock{change: make(chan struct{})}
		m.locks[path] = pl
	}
	return pl
}

func normalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
