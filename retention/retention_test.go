package retention

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonwraymond/buildcache/cachedir"
	"github.com/jonwraymond/buildcache/journal"
	"github.com/jonwraymond/buildcache/lockfile"
)

func newTestEngine(t *testing.T, policy Policy) (*Engine, *cachedir.Factory, *journal.MemoryJournal) {
	t.Helper()
	dirs := cachedir.NewFactory(t.TempDir(), "1")
	locks := lockfile.NewManager(lockfile.DefaultOptions())
	j := journal.NewMemoryJournal()
	return NewEngine(policy, dirs, locks, j), dirs, j
}

// seedEntry creates a workspace directory with one output and a history
// dir, and records its last access.
func seedEntry(t *testing.T, dirs *cachedir.Factory, j *journal.MemoryJournal, identity string, lastAccess time.Time) string {
	t.Helper()
	dir, err := dirs.CacheBuilder(identity).Open()
	if err != nil {
		t.Fatalf("failed to open dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir.Path, "out.txt"), []byte("outputs"), 0o644); err != nil {
		t.Fatalf("failed to write output: %v", err)
	}
	if err := os.MkdirAll(dir.HistoryPath(), 0o755); err != nil {
		t.Fatalf("failed to create history dir: %v", err)
	}
	if err := j.Touch(context.Background(), identity, lastAccess); err != nil {
		t.Fatalf("failed to seed journal: %v", err)
	}
	return dir.Path
}

// TestSweep_EvictsExpiredEntry verifies an entry untouched beyond MaxAge is
// deleted along with its journal row.
func TestSweep_EvictsExpiredEntry(t *testing.T) {
	e, dirs, j := newTestEngine(t, Policy{MaxAge: 7 * 24 * time.Hour, Scope: ScopeOutputs})

	path := seedEntry(t, dirs, j, "stale", time.Now().Add(-10*24*time.Hour))

	if err := e.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}
	if _, ok, _ := j.LastAccess(context.Background(), "stale"); ok {
		t.Error("journal row should be removed with the entry")
	}
}

// TestSweep_RetainsFreshEntry verifies a recently touched entry survives.
func TestSweep_RetainsFreshEntry(t *testing.T) {
	e, dirs, j := newTestEngine(t, Policy{MaxAge: 7 * 24 * time.Hour, Scope: ScopeOutputs})

	path := seedEntry(t, dirs, j, "fresh", time.Now().Add(-24*time.Hour))

	if err := e.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("fresh entry should be retained: %v", err)
	}
}

// TestSweep_SkipsLockedEntry verifies an entry under a held lock is never
// deleted.
func TestSweep_SkipsLockedEntry(t *testing.T) {
	e, dirs, j := newTestEngine(t, Policy{MaxAge: 7 * 24 * time.Hour, Scope: ScopeOutputs})

	path := seedEntry(t, dirs, j, "busy", time.Now().Add(-10*24*time.Hour))

	// Hold the lock as a concurrent workspace request would.
	holder := lockfile.NewManager(lockfile.DefaultOptions())
	h, err := holder.Acquire(context.Background(), filepath.Join(path, cachedir.LockFileName), lockfile.Exclusive)
	if err != nil {
		t.Fatalf("failed to hold lock: %v", err)
	}

	if err := e.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("locked entry should be skipped: %v", err)
	}

	// Released, the next sweep evicts it.
	if err := h.Release(); err != nil {
		t.Fatalf("failed to release lock: %v", err)
	}
	if err := e.Sweep(context.Background()); err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("entry should be evicted once the lock is released")
	}
}

// TestSweep_SeedsUnknownEntry verifies a directory with no journal row is
// given a grace period instead of being treated as expired.
func TestSweep_SeedsUnknownEntry(t *testing.T) {
	e, dirs, j := newTestEngine(t, Policy{MaxAge: 7 * 24 * time.Hour, Scope: ScopeOutputs})

	dir, err := dirs.CacheBuilder("orphan").Open()
	if err != nil {
		t.Fatalf("failed to open dir: %v", err)
	}

	if err := e.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if _, err := os.Stat(dir.Path); err != nil {
		t.Errorf("unknown entry should be retained: %v", err)
	}
	if _, ok, _ := j.LastAccess(context.Background(), "orphan"); !ok {
		t.Error("unknown entry should be seeded in the journal")
	}
}

// TestSweep_HistoryScopeKeepsOutputs verifies ScopeHistory removes the
// history dir but leaves outputs in place.
func TestSweep_HistoryScopeKeepsOutputs(t *testing.T) {
	e, dirs, j := newTestEngine(t, Policy{MaxAge: 7 * 24 * time.Hour, Scope: ScopeHistory})

	path := seedEntry(t, dirs, j, "stale", time.Now().Add(-10*24*time.Hour))

	if err := e.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(path, "out.txt")); err != nil {
		t.Errorf("outputs should be retained under ScopeHistory: %v", err)
	}
	if _, err := os.Stat(filepath.Join(path, cachedir.HistoryDirName)); !os.IsNotExist(err) {
		t.Error("history dir should be removed under ScopeHistory")
	}
}

// TestSweep_EmptyRoot verifies sweeping a nonexistent root is a no-op.
func TestSweep_EmptyRoot(t *testing.T) {
	e, _, _ := newTestEngine(t, Policy{MaxAge: time.Hour, Scope: ScopeOutputs})

	if err := e.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep of empty root should succeed: %v", err)
	}
}

// TestEngine_StateReturnsToIdle verifies the state machine settles back to
// Idle after a sweep.
func TestEngine_StateReturnsToIdle(t *testing.T) {
	e, dirs, j := newTestEngine(t, Policy{MaxAge: 7 * 24 * time.Hour, Scope: ScopeOutputs})
	seedEntry(t, dirs, j, "stale", time.Now().Add(-10*24*time.Hour))

	if got := e.State(); got != Idle {
		t.Errorf("initial state = %v, want idle", got)
	}
	if err := e.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if got := e.State(); got != Idle {
		t.Errorf("state after sweep = %v, want idle", got)
	}
}

// TestRun_SweepsImmediately verifies Run performs a startup sweep before
// the first tick.
func TestRun_SweepsImmediately(t *testing.T) {
	e, dirs, j := newTestEngine(t, Policy{MaxAge: 7 * 24 * time.Hour, CleanupInterval: time.Hour, Scope: ScopeOutputs})
	path := seedEntry(t, dirs, j, "stale", time.Now().Add(-10*24*time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("startup sweep did not evict the expired entry")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}
