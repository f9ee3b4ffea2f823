package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonwraymond/buildcache/cachedir"
	"github.com/jonwraymond/buildcache/journal"
	"github.com/jonwraymond/buildcache/lockfile"
)

// RootWritable probes whether the versioned cache root can be created and
// written to. An unwritable root makes every workspace request fail.
func RootWritable(dirs *cachedir.Factory) Check {
	return NewCheck("cache-root", func(_ context.Context) Result {
		root := dirs.VersionedRoot()
		if err := os.MkdirAll(root, 0o755); err != nil {
			return Result{Status: Unhealthy, Message: "cache root cannot be created", Err: err}
		}

		probe := filepath.Join(root, ".health-probe")
		if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
			return Result{Status: Unhealthy, Message: "cache root is not writable", Err: err}
		}
		os.Remove(probe)

		return Result{Status: Healthy, Message: fmt.Sprintf("cache root %s writable", root)}
	})
}

// JournalReachable probes the access journal with a read. Journal failures
// only degrade the engine: requests still succeed, retention stalls.
func JournalReachable(j journal.Journal) Check {
	return NewCheck("journal", func(ctx context.Context) Result {
		if _, _, err := j.LastAccess(ctx, ".health-probe"); err != nil {
			return Result{Status: Degraded, Message: "journal unreachable, retention will stall", Err: err}
		}
		return Result{Status: Healthy, Message: "journal reachable"}
	})
}

// LockAcquirable probes that a workspace lock can be taken and released
// under the given identity's sentinel path.
func LockAcquirable(locks *lockfile.Manager, dirs *cachedir.Factory, identity string) Check {
	return NewCheck("lock", func(_ context.Context) Result {
		dir, err := dirs.CacheBuilder(identity).Open()
		if err != nil {
			return Result{Status: Unhealthy, Message: "cannot resolve workspace directory", Err: err}
		}

		handle, ok, err := locks.Try(dir.LockPath(), lockfile.Exclusive)
		if err != nil {
			return Result{Status: Unhealthy, Message: "lock acquisition failed", Err: err}
		}
		if !ok {
			return Result{Status: Degraded, Message: "workspace lock currently held"}
		}
		if err := handle.Release(); err != nil {
			return Result{Status: Degraded, Message: "lock release failed", Err: err}
		}
		return Result{Status: Healthy, Message: "workspace lock acquirable"}
	})
}

// EngineChecks assembles the standard runner for a cache engine instance.
func EngineChecks(dirs *cachedir.Factory, locks *lockfile.Manager, j journal.Journal, timeout time.Duration) *Runner {
	r := NewRunner(timeout)
	r.Register(RootWritable(dirs))
	r.Register(JournalReachable(j))
	r.Register(LockAcquirable(locks, dirs, "health-probe"))
	return r
}
