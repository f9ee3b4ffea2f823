package toolchains

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonwraymond/buildcache/cachedir"
	"github.com/jonwraymond/buildcache/lockfile"
	"github.com/jonwraymond/buildcache/workspace"
)

func newTestWorkspaceProvider(t *testing.T) *workspace.Provider {
	t.Helper()
	dirs := cachedir.NewFactory(t.TempDir(), "1")
	locks := lockfile.NewManager(lockfile.DefaultOptions())
	return workspace.NewProvider(locks, dirs)
}

// TestMaterialize_WritesDependencySets verifies the workspace contents for
// a representative toolchain.
func TestMaterialize_WritesDependencySets(t *testing.T) {
	p := newTestWorkspaceProvider(t)
	r := NewRegistry()

	tc, err := r.Get(Jupiter, "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	res, err := Materialize(context.Background(), p, tc)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if res.Hit {
		t.Error("first materialization should be a miss")
	}

	impl, err := os.ReadFile(filepath.Join(res.Path, "implementation.txt"))
	if err != nil {
		t.Fatalf("failed to read implementation set: %v", err)
	}
	if want := "org.junit.jupiter:junit-jupiter:" + DefaultJupiterVersion + "\n"; string(impl) != want {
		t.Errorf("implementation set = %q, want %q", impl, want)
	}

	framework, err := os.ReadFile(filepath.Join(res.Path, "framework.txt"))
	if err != nil {
		t.Fatalf("failed to read framework descriptor: %v", err)
	}
	if !strings.HasPrefix(string(framework), "junit-platform\n") {
		t.Errorf("framework descriptor = %q, want junit-platform header", framework)
	}
}

// TestMaterialize_SecondCallHits verifies an unchanged toolchain is served
// from history.
func TestMaterialize_SecondCallHits(t *testing.T) {
	p := newTestWorkspaceProvider(t)
	r := NewRegistry()

	tc, err := r.Get(TestNG, "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if _, err := Materialize(context.Background(), p, tc); err != nil {
		t.Fatalf("first Materialize failed: %v", err)
	}
	res, err := Materialize(context.Background(), p, tc)
	if err != nil {
		t.Fatalf("second Materialize failed: %v", err)
	}
	if !res.Hit {
		t.Error("unchanged toolchain should be a hit")
	}
}

// TestMaterialize_VersionBumpRecomputes verifies a pinned version change
// forces a fresh materialization.
func TestMaterialize_VersionBumpRecomputes(t *testing.T) {
	p := newTestWorkspaceProvider(t)
	r := NewRegistry()

	v1, err := r.Get(Jupiter, "5.9.0")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, err := Materialize(context.Background(), p, v1); err != nil {
		t.Fatalf("first Materialize failed: %v", err)
	}

	v2, err := r.Get(Jupiter, "5.10.2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	res, err := Materialize(context.Background(), p, v2)
	if err != nil {
		t.Fatalf("second Materialize failed: %v", err)
	}
	if res.Hit {
		t.Error("version bump should force a miss")
	}

	impl, err := os.ReadFile(filepath.Join(res.Path, "implementation.txt"))
	if err != nil {
		t.Fatalf("failed to read implementation set: %v", err)
	}
	if !strings.Contains(string(impl), "5.10.2") {
		t.Errorf("implementation set not rewritten: %q", impl)
	}
}
