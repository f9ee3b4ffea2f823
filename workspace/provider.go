package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonwraymond/buildcache/cachedir"
	"github.com/jonwraymond/buildcache/fingerprint"
	"github.com/jonwraymond/buildcache/history"
	"github.com/jonwraymond/buildcache/journal"
	"github.com/jonwraymond/buildcache/lockfile"
	"github.com/jonwraymond/buildcache/observe"
)

// Result describes the outcome of a workspace request.
type Result struct {
	// Path is the workspace directory holding the outputs.
	Path string

	// Fingerprint is the input digest the outputs were recorded under.
	Fingerprint fingerprint.Digest

	// Manifest lists the recorded output files.
	Manifest history.Manifest

	// Hit reports whether the outputs were served from history without
	// invoking produce.
	Hit bool

	// RecordedAt is when the history entry was written.
	RecordedAt time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithJournal sets the access-time journal touched on every successful
// workspace request. Without it, access bookkeeping is skipped.
func WithJournal(j journal.Journal) Option {
	return func(p *Provider) { p.journal = j }
}

// WithLogger sets the structured logger.
func WithLogger(l observe.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observe.Metrics) Option {
	return func(p *Provider) { p.metrics = m }
}

// WithTracer sets the tracer used to span each request.
func WithTracer(t observe.Tracer) Option {
	return func(p *Provider) { p.tracer = t }
}

// WithStages wraps every production action with the given stages, first
// stage outermost.
func WithStages(stages ...Stage) Option {
	return func(p *Provider) { p.stages = stages }
}

// Provider is the workspace orchestrator. It is safe for concurrent use.
//
// Contract:
// - Concurrency: one produce per identity runs at a time, system-wide; the
//   exclusive lock also serializes callers holding different fingerprints.
// - Context: WithWorkspace honors cancellation while waiting for the lock;
//   an in-progress produce is not interrupted by the provider itself.
// - Errors: lock timeouts, produce failures, and directory allocation
//   errors propagate; corrupt history, stale manifests, and journal write
//   failures degrade to recomputation.
type Provider struct {
	locks   *lockfile.Manager
	dirs    *cachedir.Factory
	journal journal.Journal
	logger  observe.Logger
	metrics observe.Metrics
	tracer  observe.Tracer
	stages  []Stage

	mu     sync.Mutex
	stores map[string]*history.Store
}

// NewProvider creates a Provider over the given lock manager and directory
// factory.
func NewProvider(locks *lockfile.Manager, dirs *cachedir.Factory, opts ...Option) *Provider {
	p := &Provider{
		locks:   locks,
		dirs:    dirs,
		logger:  observe.NopLogger(),
		metrics: observe.NopMetrics(),
		tracer:  observe.NopTracer(),
		stores:  make(map[string]*history.Store),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithWorkspace resolves the workspace for identity, decides hit or miss
// against the recorded fingerprint, and runs produce on miss. The
// workspace lock is held for the whole decision and released on every exit
// path.
func (p *Provider) WithWorkspace(ctx context.Context, identity string, fp fingerprint.Digest, produce ProduceFunc) (*Result, error) {
	meta := observe.CacheMeta{Identity: identity, Operation: "workspace"}

	ctx, span := p.tracer.StartSpan(ctx, meta)
	start := time.Now()

	res, err := p.withWorkspace(ctx, meta, identity, fp, produce)

	hit := res != nil && res.Hit
	p.metrics.RecordWorkspace(ctx, meta, time.Since(start), hit, err)
	p.tracer.EndSpan(span, err)
	return res, err
}

func (p *Provider) withWorkspace(ctx context.Context, meta observe.CacheMeta, identity string, fp fingerprint.Digest, produce ProduceFunc) (*Result, error) {
	dir, err := p.dirs.CacheBuilder(identity).Open()
	if err != nil {
		return nil, err
	}

	var res *Result
	lockStart := time.Now()
	err = p.locks.WithLock(ctx, dir.LockPath(), lockfile.Exclusive, func(ctx context.Context) error {
		p.metrics.RecordLockWait(ctx, meta, time.Since(lockStart))

		store := p.storeFor(identity, dir.HistoryPath())

		entry, found := p.lookup(ctx, meta, store, dir.Path, fp)
		if found {
			res = &Result{
				Path:        dir.Path,
				Fingerprint: fp,
				Manifest:    entry.Manifest,
				Hit:         true,
				RecordedAt:  entry.RecordedAt,
			}
			p.touch(ctx, meta, identity)
			return nil
		}

		run := chain(p.stages, produce)
		if err := run(ctx, dir.Path); err != nil {
			return &ProduceError{Identity: identity, Err: err}
		}

		manifest, err := history.ComputeManifest(dir.Path)
		if err != nil {
			return fmt.Errorf("workspace: recording outputs for %q: %w", identity, err)
		}

		recorded := &history.Entry{
			Identity:    identity,
			Fingerprint: fp,
			Manifest:    manifest,
			RecordedAt:  time.Now().UTC(),
		}
		if err := store.Put(recorded); err != nil {
			return fmt.Errorf("workspace: recording history for %q: %w", identity, err)
		}

		res = &Result{
			Path:        dir.Path,
			Fingerprint: fp,
			Manifest:    manifest,
			Hit:         false,
			RecordedAt:  recorded.RecordedAt,
		}
		p.touch(ctx, meta, identity)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// lookup queries history and validates the recorded manifest against disk.
// Every anomaly short of a clean hit degrades to a miss.
func (p *Provider) lookup(ctx context.Context, meta observe.CacheMeta, store *history.Store, dir string, fp fingerprint.Digest) (*history.Entry, bool) {
	entry, err := store.Get(fp)
	switch {
	case err == nil:
	case errors.Is(err, history.ErrEntryNotFound):
		return nil, false
	case errors.Is(err, history.ErrCorruptEntry):
		p.logger.WithCache(meta).Warn(ctx, "corrupt history entry, recomputing",
			observe.Field{Key: "error", Value: err.Error()},
		)
		return nil, false
	default:
		p.logger.WithCache(meta).Warn(ctx, "unreadable history entry, recomputing",
			observe.Field{Key: "error", Value: err.Error()},
		)
		return nil, false
	}

	if err := entry.Manifest.Validate(dir); err != nil {
		p.logger.WithCache(meta).Warn(ctx, "recorded outputs no longer match disk, recomputing",
			observe.Field{Key: "error", Value: err.Error()},
		)
		return nil, false
	}
	return entry, true
}

// touch records the access time. Failures are logged and counted, never
// propagated: bookkeeping must not break the build.
func (p *Provider) touch(ctx context.Context, meta observe.CacheMeta, identity string) {
	if p.journal == nil {
		return
	}
	if err := p.journal.Touch(ctx, identity, time.Now()); err != nil {
		p.metrics.RecordJournalFailure(ctx, identity)
		p.logger.WithCache(meta).Warn(ctx, "journal write failed",
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
}

// Invalidate drops all history entries for identity under its exclusive
// lock. The output files themselves are left for retention to remove.
func (p *Provider) Invalidate(ctx context.Context, identity string) error {
	meta := observe.CacheMeta{Identity: identity, Operation: "invalidate"}

	ctx, span := p.tracer.StartSpan(ctx, meta)

	dir, err := p.dirs.CacheBuilder(identity).Open()
	if err != nil {
		p.tracer.EndSpan(span, err)
		return err
	}

	err = p.locks.WithLock(ctx, dir.LockPath(), lockfile.Exclusive, func(ctx context.Context) error {
		return p.storeFor(identity, dir.HistoryPath()).Invalidate()
	})
	p.tracer.EndSpan(span, err)
	return err
}

// storeFor returns the memoized history store for identity.
func (p *Provider) storeFor(identity, dir string) *history.Store {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.stores[identity]; ok {
		return s
	}
	s := history.NewStore(identity, dir)
	p.stores[identity] = s
	return s
}
