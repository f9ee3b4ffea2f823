package journal

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Access is one journal row.
type Access struct {
	Key        string
	LastAccess time.Time
}

// Journal is the access-time bookkeeping interface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Monotonicity: Touch never moves a record backwards in time.
// - Errors: callers treat Touch failures as best-effort; the surrounding
//   workspace operation still succeeds.
type Journal interface {
	// Touch records that key was used at now.
	Touch(ctx context.Context, key string, now time.Time) error

	// LastAccess returns the recorded time for key, ok=false when the key
	// has never been touched.
	LastAccess(ctx context.Context, key string) (time.Time, bool, error)

	// Remove drops the record for key. Idempotent.
	Remove(ctx context.Context, key string) error

	// Entries lists all records, ordered by key.
	Entries(ctx context.Context) ([]Access, error)

	// Close releases any underlying resources.
	Close() error
}

// MemoryJournal is an in-memory Journal, used in tests and as a fallback
// when no durable journal is configured.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

// NewMemoryJournal creates an empty in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{entries: make(map[string]time.Time)}
}

// Touch records the access time, keeping the record monotonic.
func (j *MemoryJournal) Touch(_ context.Context, key string, now time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if prev, ok := j.entries[key]; ok && prev.After(now) {
		return nil
	}
	j.entries[key] = now
	return nil
}

// LastAccess returns the recorded time for key.
func (j *MemoryJournal) LastAccess(_ context.Context, key string) (time.Time, bool, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	t, ok := j.entries[key]
	return t, ok, nil
}

// Remove drops the record for key.
func (j *MemoryJournal) Remove(_ context.Context, key string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.entries, key)
	return nil
}

// Entries lists all records ordered by key.
func (j *MemoryJournal) Entries(_ context.Context) ([]Access, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Access, 0, len(j.entries))
	for k, t := range j.entries {
		out = append(out, Access{Key: k, LastAccess: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Close is a no-op.
func (j *MemoryJournal) Close() error { return nil }

// Ensure MemoryJournal implements Journal
var _ Journal = (*MemoryJournal)(nil)
