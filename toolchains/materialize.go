package toolchains

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonwraymond/buildcache/fingerprint"
	"github.com/jonwraymond/buildcache/workspace"
)

// MaterializeIdentity is the cache identity toolchain dependency sets are
// materialized under.
const MaterializeIdentity = "toolchains"

// materializeSchema versions the on-disk layout produced below. Bumping it
// invalidates prior materializations through the fingerprint.
const materializeSchema = 1

// Fingerprint digests everything that determines a toolchain's
// materialized form: variant, version, layout schema, and every dependency
// set as an unordered collection.
func Fingerprint(tc Toolchain) fingerprint.Digest {
	h := fingerprint.New()
	h.PutString(tc.Name())
	h.PutString(tc.Version())
	h.PutInt64(materializeSchema)
	h.PutSet(notations(tc.ImplementationDependencies()))
	h.PutSet(notations(tc.RuntimeOnlyDependencies()))
	h.PutSet(notations(tc.CompileOnlyDependencies()))
	h.PutString(tc.Framework().Name)
	h.PutString(tc.Framework().EntryModule.String())
	return h.Sum()
}

func notations(deps []Dependency) [][]byte {
	out := make([][]byte, len(deps))
	for i, d := range deps {
		out[i] = []byte(d.String())
	}
	return out
}

// Materialize writes the toolchain's dependency sets into the shared
// toolchains workspace. Repeat calls for an unchanged toolchain are served
// from history without rewriting anything.
func Materialize(ctx context.Context, provider *workspace.Provider, tc Toolchain) (*workspace.Result, error) {
	fp := Fingerprint(tc)

	return provider.WithWorkspace(ctx, MaterializeIdentity, fp, func(_ context.Context, dir string) error {
		sets := map[string][]Dependency{
			"implementation.txt": tc.ImplementationDependencies(),
			"runtimeOnly.txt":    tc.RuntimeOnlyDependencies(),
			"compileOnly.txt":    tc.CompileOnlyDependencies(),
		}
		for file, deps := range sets {
			if err := writeCoordinates(filepath.Join(dir, file), deps); err != nil {
				return err
			}
		}

		framework := tc.Framework().Name
		if entry := tc.Framework().EntryModule; entry.Name != "" {
			framework += "\n" + entry.String()
		}
		return os.WriteFile(filepath.Join(dir, "framework.txt"), []byte(framework+"\n"), 0o644)
	})
}

// writeCoordinates writes one coordinate per line in declaration order.
func writeCoordinates(path string, deps []Dependency) error {
	var b strings.Builder
	for _, d := range deps {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
