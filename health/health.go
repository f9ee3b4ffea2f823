package health

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Errors reported by the runner.
var (
	// ErrUnknownCheck is returned when a named check is not registered.
	ErrUnknownCheck = errors.New("health: unknown check")

	// ErrCheckTimeout marks a check that did not finish within the
	// runner's deadline.
	ErrCheckTimeout = errors.New("health: check timed out")
)

// Status grades a check outcome.
type Status int

const (
	// Healthy means the dependency is fully usable.
	Healthy Status = iota

	// Degraded means the engine can run but will skip some behavior,
	// such as best-effort journaling.
	Degraded

	// Unhealthy means workspace requests would fail.
	Unhealthy
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Unhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result is one check outcome.
type Result struct {
	Status   Status
	Message  string
	Err      error
	Duration time.Duration
}

// Check probes one engine dependency.
type Check interface {
	// Name identifies the dependency, e.g. "cache-root".
	Name() string

	// Run performs the probe. It must honor ctx and never panic.
	Run(ctx context.Context) Result
}

// CheckFunc adapts a function to the Check interface.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) Result
}

// NewCheck wraps fn as a named Check.
func NewCheck(name string, fn func(ctx context.Context) Result) *CheckFunc {
	return &CheckFunc{name: name, fn: fn}
}

func (c *CheckFunc) Name() string                    { return c.name }
func (c *CheckFunc) Run(ctx context.Context) Result { return c.fn(ctx) }

// Runner executes registered checks with a shared deadline.
type Runner struct {
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]Check
	order  []string
}

// NewRunner creates a Runner. A zero timeout defaults to ten seconds.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Runner{
		timeout: timeout,
		checks:  make(map[string]Check),
	}
}

// Register adds a check. Re-registering a name replaces the prior check
// but keeps its position.
func (r *Runner) Register(c Check) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.checks[c.Name()]; !exists {
		r.order = append(r.order, c.Name())
	}
	r.checks[c.Name()] = c
}

// Names lists registered checks in registration order.
func (r *Runner) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Run executes one named check.
func (r *Runner) Run(ctx context.Context, name string) (Result, error) {
	r.mu.RLock()
	c, ok := r.checks[name]
	r.mu.RUnlock()
	if !ok {
		return Result{}, ErrUnknownCheck
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.run(ctx, c), nil
}

// RunAll executes every registered check concurrently under one deadline.
func (r *Runner) RunAll(ctx context.Context) map[string]Result {
	r.mu.RLock()
	checks := make([]Check, 0, len(r.order))
	for _, name := range r.order {
		checks = append(checks, r.checks[name])
	}
	r.mu.RUnlock()

	results := make(map[string]Result, len(checks))
	if len(checks) == 0 {
		return results
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, c := range checks {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := r.run(ctx, c)
			mu.Lock()
			results[c.Name()] = res
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// Overall folds results to the worst status observed.
func Overall(results map[string]Result) Status {
	overall := Healthy
	for _, res := range results {
		if res.Status > overall {
			overall = res.Status
		}
	}
	return overall
}

func (r *Runner) run(ctx context.Context, c Check) Result {
	start := time.Now()
	done := make(chan Result, 1)

	go func() {
		res := c.Run(ctx)
		res.Duration = time.Since(start)
		done <- res
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return Result{
			Status:   Unhealthy,
			Message:  "check timed out",
			Err:      ErrCheckTimeout,
			Duration: time.Since(start),
		}
	}
}
