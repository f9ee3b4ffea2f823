package lockfile

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for lock operations.
var (
	// ErrTimeout is returned when a lock could not be acquired within the
	// configured window. Concrete failures carry a *TimeoutError.
	ErrTimeout = errors.New("lockfile: lock acquisition timed out")

	// ErrNotHeld is returned when releasing a handle that is no longer held.
	ErrNotHeld = errors.New("lockfile: lock not held")

	// ErrUpgrade is returned when a scope holding a shared lock requests an
	// exclusive lock on the same path. Upgrades deadlock against other
	// readers, so they are rejected outright.
	ErrUpgrade = errors.New("lockfile: cannot upgrade shared lock to exclusive")
)

// TimeoutError reports a lock that another holder did not release in time.
type TimeoutError struct {
	Path    string
	Mode    Mode
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("lockfile: timed out after %s waiting for %s lock on %s", e.Timeout, e.Mode, e.Path)
}

// Is makes errors.Is(err, ErrTimeout) match a *TimeoutError.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
