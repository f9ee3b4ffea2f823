package toolchains

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry errors.
var (
	// ErrUnknownToolchain is returned by Get for a name no factory covers.
	ErrUnknownToolchain = errors.New("toolchains: unknown toolchain")

	// ErrAlreadyRegistered is returned by Register for a taken name.
	ErrAlreadyRegistered = errors.New("toolchains: already registered")
)

// Registry memoizes toolchain construction. Get is atomic: concurrent
// callers asking for the same (name, version) pair share one construction
// and receive the same instance.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	instances map[string]Toolchain

	group singleflight.Group
}

// NewRegistry creates a Registry seeded with the built-in variants.
func NewRegistry() *Registry {
	return &Registry{
		factories: builtinFactories(),
		instances: make(map[string]Toolchain),
	}
}

// Register adds a custom variant. Built-in names cannot be replaced.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, name)
	}
	r.factories[name] = factory
	return nil
}

// Names lists the registered variant names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the memoized toolchain for (name, version), constructing it
// at most once. An empty version selects the variant's default.
func (r *Registry) Get(name, version string) (Toolchain, error) {
	key := name + "@" + version

	r.mu.RLock()
	tc, ok := r.instances[key]
	r.mu.RUnlock()
	if ok {
		return tc, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		r.mu.RLock()
		factory, ok := r.factories[name]
		r.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownToolchain, name)
		}

		tc := factory(version)

		r.mu.Lock()
		r.instances[key] = tc
		r.mu.Unlock()
		return tc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Toolchain), nil
}
