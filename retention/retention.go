package retention

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/buildcache/cachedir"
	"github.com/jonwraymond/buildcache/journal"
	"github.com/jonwraymond/buildcache/lockfile"
	"github.com/jonwraymond/buildcache/observe"
)

// Scope selects what eviction removes for an expired entry.
type Scope int

const (
	// ScopeHistory removes only the recorded execution history; output
	// files stay on disk until a wider sweep.
	ScopeHistory Scope = iota

	// ScopeOutputs removes the whole workspace directory, outputs and
	// history alike.
	ScopeOutputs
)

// State reports what phase the engine is in.
type State int32

const (
	Idle State = iota
	Scanning
	Evicting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Evicting:
		return "evicting"
	default:
		return "unknown"
	}
}

// scanParallelism bounds concurrent journal reads during a sweep.
const scanParallelism = 4

// Policy configures what the engine evicts and how often it runs.
type Policy struct {
	// MaxAge is how long an entry may go untouched before eviction.
	MaxAge time.Duration

	// CleanupInterval is the pause between periodic sweeps.
	CleanupInterval time.Duration

	// Scope selects whether eviction removes outputs or history only.
	Scope Scope
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(l observe.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer sets the tracer used to span each sweep.
func WithTracer(t observe.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// Engine scans the cache root and evicts expired entries.
//
// Contract:
// - Concurrency: Sweep is safe to call concurrently with workspace
//   requests; locked entries are skipped, never deleted.
// - Context: Run exits when ctx is cancelled; Sweep honors cancellation
//   between identities.
// - Errors: per-identity failures are logged and do not abort the sweep.
type Engine struct {
	policy  Policy
	dirs    *cachedir.Factory
	locks   *lockfile.Manager
	journal journal.Journal
	logger  observe.Logger
	metrics observe.Metrics
	tracer  observe.Tracer

	state atomic.Int32
}

// NewEngine creates an Engine over the given directory factory, lock
// manager, and journal.
func NewEngine(policy Policy, dirs *cachedir.Factory, locks *lockfile.Manager, j journal.Journal, opts ...Option) *Engine {
	e := &Engine{
		policy:  policy,
		dirs:    dirs,
		locks:   locks,
		journal: j,
		logger:  observe.NopLogger(),
		metrics: observe.NopMetrics(),
		tracer:  observe.NopTracer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State reports the engine's current phase.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Run sweeps immediately, then on every CleanupInterval tick until ctx is
// cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.policy.CleanupInterval)
	defer ticker.Stop()

	for {
		if err := e.Sweep(ctx); err != nil {
			e.logger.Warn(ctx, "retention sweep failed",
				observe.Field{Key: "error", Value: err.Error()},
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep runs one scan-and-evict pass over every identity under the
// versioned root.
func (e *Engine) Sweep(ctx context.Context) error {
	meta := observe.CacheMeta{Operation: "sweep"}
	ctx, span := e.tracer.StartSpan(ctx, meta)

	err := e.sweep(ctx)
	e.tracer.EndSpan(span, err)
	return err
}

func (e *Engine) sweep(ctx context.Context) error {
	e.state.Store(int32(Scanning))
	defer e.state.Store(int32(Idle))

	identities, err := e.listIdentities()
	if err != nil {
		return err
	}

	now := time.Now()
	cutoff := now.Add(-e.policy.MaxAge)

	var mu sync.Mutex
	var expired []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanParallelism)
	for _, identity := range identities {
		identity := identity
		g.Go(func() error {
			last, ok, err := e.journal.LastAccess(gctx, identity)
			if err != nil {
				e.logger.WithCache(observe.CacheMeta{Identity: identity, Operation: "sweep"}).
					Warn(gctx, "journal read failed, skipping identity",
						observe.Field{Key: "error", Value: err.Error()},
					)
				return nil
			}
			if !ok {
				// First sighting of this directory. Seed a row so it
				// becomes evictable one MaxAge from now, not immediately.
				if err := e.journal.Touch(gctx, identity, now); err != nil {
					e.metrics.RecordJournalFailure(gctx, identity)
				}
				return nil
			}
			if last.Before(cutoff) {
				mu.Lock()
				expired = append(expired, identity)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(expired) == 0 {
		return nil
	}

	e.state.Store(int32(Evicting))
	for _, identity := range expired {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.evict(ctx, identity)
	}
	return nil
}

// evict removes one expired entry unless its lock is held.
func (e *Engine) evict(ctx context.Context, identity string) {
	meta := observe.CacheMeta{Identity: identity, Operation: "evict"}
	path := filepath.Join(e.dirs.VersionedRoot(), identity)
	lockPath := filepath.Join(path, cachedir.LockFileName)

	handle, ok, err := e.locks.Try(lockPath, lockfile.Exclusive)
	if err != nil {
		e.logger.WithCache(meta).Warn(ctx, "eviction lock failed",
			observe.Field{Key: "error", Value: err.Error()},
		)
		return
	}
	if !ok {
		// In use right now. The next sweep will reconsider it.
		e.logger.WithCache(meta).Debug(ctx, "entry locked, skipping eviction")
		return
	}
	defer handle.Release()

	var removeErr error
	switch e.policy.Scope {
	case ScopeOutputs:
		removeErr = os.RemoveAll(path)
	case ScopeHistory:
		removeErr = os.RemoveAll(filepath.Join(path, cachedir.HistoryDirName))
	}
	if removeErr != nil {
		e.logger.WithCache(meta).Warn(ctx, "eviction failed",
			observe.Field{Key: "error", Value: removeErr.Error()},
		)
		return
	}

	if e.policy.Scope == ScopeOutputs {
		if err := e.journal.Remove(ctx, identity); err != nil {
			e.metrics.RecordJournalFailure(ctx, identity)
		}
	}

	e.metrics.RecordEviction(ctx, identity)
	e.logger.WithCache(meta).Info(ctx, "evicted expired entry")
}

// listIdentities enumerates workspace directories under the versioned
// root, skipping the journal's own files.
func (e *Engine) listIdentities() ([]string, error) {
	entries, err := os.ReadDir(e.dirs.VersionedRoot())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var identities []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		identities = append(identities, entry.Name())
	}
	return identities, nil
}
