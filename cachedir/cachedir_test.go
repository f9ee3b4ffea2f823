package cachedir

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// TestBuilder_DeterministicResolution verifies equal (root, version, name)
// always resolve to the same path.
func TestBuilder_DeterministicResolution(t *testing.T) {
	root := t.TempDir()
	f := NewFactory(root, "9.4")

	first, err := f.CacheBuilder("scripts").Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	second, err := f.CacheBuilder("scripts").Open()
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}

	if first.Path != second.Path {
		t.Errorf("paths differ for same name: %q vs %q", first.Path, second.Path)
	}
	if want := filepath.Join(root, "9.4", "scripts"); first.Path != want {
		t.Errorf("Path = %q, want %q", first.Path, want)
	}

	info, err := os.Stat(first.Path)
	if err != nil || !info.IsDir() {
		t.Errorf("directory not created: %v", err)
	}
}

// TestBuilder_DisplayNameDoesNotAffectPath verifies display names are
// diagnostic-only.
func TestBuilder_DisplayNameDoesNotAffectPath(t *testing.T) {
	f := NewFactory(t.TempDir(), "9.4")

	plain, err := f.CacheBuilder("accessors").Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	labeled, err := f.CacheBuilder("accessors").WithDisplayName("generated accessors").Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if plain.Path != labeled.Path {
		t.Errorf("display name changed path resolution: %q vs %q", plain.Path, labeled.Path)
	}
	if labeled.DisplayName != "generated accessors" {
		t.Errorf("DisplayName = %q", labeled.DisplayName)
	}
}

// TestBuilder_NameValidation rejects names that cannot form safe segments.
func TestBuilder_NameValidation(t *testing.T) {
	f := NewFactory(t.TempDir(), "9.4")

	tests := []struct {
		name      string
		cacheName string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"slash", "a/b"},
		{"traversal", ".."},
		{"hidden", ".executionHistory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.CacheBuilder(tt.cacheName).Open(); !errors.Is(err, ErrInvalidName) {
				t.Errorf("Open(%q) error = %v, want ErrInvalidName", tt.cacheName, err)
			}
		})
	}
}

// TestBuilder_VersionsIsolate verifies different schema versions get
// different directories.
func TestBuilder_VersionsIsolate(t *testing.T) {
	root := t.TempDir()

	old, err := NewFactory(root, "9.3").CacheBuilder("scripts").Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	cur, err := NewFactory(root, "9.4").CacheBuilder("scripts").Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if old.Path == cur.Path {
		t.Errorf("different versions share path %q", old.Path)
	}
}

// TestBuilder_UnwritableRoot verifies allocation failures surface as
// AllocationError rather than a silent fallback.
func TestBuilder_UnwritableRoot(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits not enforced here")
	}

	root := t.TempDir()
	if err := os.Chmod(root, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(root, 0o755) })

	_, err := NewFactory(root, "9.4").CacheBuilder("scripts").Open()
	if !errors.Is(err, ErrAllocation) {
		t.Fatalf("Open() error = %v, want ErrAllocation", err)
	}
	var ae *AllocationError
	if !errors.As(err, &ae) {
		t.Fatalf("error %v is not an *AllocationError", err)
	}
	if ae.Path == "" {
		t.Error("AllocationError.Path is empty")
	}
}

// TestDir_WellKnownPaths verifies lock and history locations.
func TestDir_WellKnownPaths(t *testing.T) {
	f := NewFactory(t.TempDir(), "9.4")
	d, err := f.CacheBuilder("scripts").Open()
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if want := filepath.Join(d.Path, ".lock"); d.LockPath() != want {
		t.Errorf("LockPath() = %q, want %q", d.LockPath(), want)
	}
	if want := filepath.Join(d.Path, ".executionHistory"); d.HistoryPath() != want {
		t.Errorf("HistoryPath() = %q, want %q", d.HistoryPath(), want)
	}
}
