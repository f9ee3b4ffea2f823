package lockfile

import "context"

type heldKey struct{}

// heldLocks returns the set of lock paths already held by this scope.
func heldLocks(ctx context.Context) map[string]Mode {
	held, _ := ctx.Value(heldKey{}).(map[string]Mode)
	return held
}

func withHeld(ctx context.Context, path string, mode Mode) context.Context {
	prev := heldLocks(ctx)
	held := make(map[string]Mode, len(prev)+1)
	for p, m := range prev {
		held[p] = m
	}
	held[path] = mode
	return context.WithValue(ctx, heldKey{}, held)
}

// WithLock runs fn while holding the lock on path, releasing it on every
// exit path including panics. The context passed to fn records the held
// lock, so a nested WithLock on the same path reuses it instead of
// deadlocking. A nested request to upgrade Shared to Exclusive is rejected
// with ErrUpgrade.
func (m *Manager) WithLock(ctx context.Context, path string, mode Mode, fn func(ctx context.Context) error) error {
	path = normalize(path)

	if held, ok := heldLocks(ctx)[path]; ok {
		if mode == Exclusive && held == Shared {
			return ErrUpgrade
		}
		return fn(ctx)
	}

	h, err := m.Acquire(ctx, path, mode)
	if err != nil {
		return err
	}
	defer func() { _ = h.Release() }()

	return fn(withHeld(ctx, path, mode))
}
