package cachedir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Well-known names inside an allocated cache directory.
const (
	// LockFileName is the sentinel file the lock manager keys on.
	LockFileName = ".lock"

	// HistoryDirName holds the execution history store's data.
	HistoryDirName = ".executionHistory"
)

// Sentinel errors for directory allocation.
var (
	// ErrInvalidName is returned for cache names that cannot form a safe
	// path segment.
	ErrInvalidName = errors.New("cachedir: invalid cache name")

	// ErrAllocation is returned when the cache root is unwritable. This is
	// fatal; there is no fallback location.
	ErrAllocation = errors.New("cachedir: cannot allocate cache directory")
)

// AllocationError reports a directory that could not be created.
type AllocationError struct {
	Path string
	Err  error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("cachedir: allocating %s: %v", e.Path, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrAllocation) match an *AllocationError.
func (e *AllocationError) Is(target error) bool { return target == ErrAllocation }

// Factory resolves cache names to directories under <root>/<version>/.
type Factory struct {
	root    string
	version string
}

// NewFactory creates a factory for the given cache root and schema version.
func NewFactory(root, version string) *Factory {
	return &Factory{root: root, version: version}
}

// Root returns the shared cache root.
func (f *Factory) Root() string { return f.root }

// VersionedRoot returns <root>/<version>, the directory all caches for
// this schema version live under.
func (f *Factory) VersionedRoot() string {
	return filepath.Join(f.root, f.version)
}

// CacheBuilder starts building the cache directory for name.
func (f *Factory) CacheBuilder(name string) *Builder {
	return &Builder{factory: f, name: name, displayName: name}
}

// Builder accumulates options before opening a cache directory.
type Builder struct {
	factory     *Factory
	name        string
	displayName string
}

// WithDisplayName sets a human-readable name used in diagnostics. It never
// affects path resolution.
func (b *Builder) WithDisplayName(displayName string) *Builder {
	b.displayName = displayName
	return b
}

// Open resolves and creates the cache directory, including parents.
func (b *Builder) Open() (*Dir, error) {
	if err := validateName(b.name); err != nil {
		return nil, err
	}

	path := filepath.Join(b.factory.VersionedRoot(), b.name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, &AllocationError{Path: path, Err: err}
	}

	return &Dir{
		Name:        b.name,
		DisplayName: b.displayName,
		Path:        path,
	}, nil
}

// Dir is an allocated cache directory bound to an identity.
type Dir struct {
	// Name is the identity this directory belongs to.
	Name string

	// DisplayName is the diagnostic label for this cache.
	DisplayName string

	// Path is the absolute directory location.
	Path string
}

// LockPath returns the sentinel file path for this directory's lock.
func (d *Dir) LockPath() string {
	return filepath.Join(d.Path, LockFileName)
}

// HistoryPath returns the execution history store location.
func (d *Dir) HistoryPath() string {
	return filepath.Join(d.Path, HistoryDirName)
}

func (d *Dir) String() string {
	if d.DisplayName != "" && d.DisplayName != d.Name {
		return fmt.Sprintf("%s (%s)", d.DisplayName, d.Path)
	}
	return d.Path
}

// validateName rejects names that would escape the versioned root or
// collide with the store's internal entries.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return fmt.Errorf("%w: %q contains path separators", ErrInvalidName, name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidName, name)
	}
	return nil
}
