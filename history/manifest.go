package history

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jonwraymond/buildcache/cachedir"
	"github.com/jonwraymond/buildcache/fingerprint"
)

// FileEntry records one produced output file.
type FileEntry struct {
	RelativePath string             `json:"path"`
	ContentHash  fingerprint.Digest `json:"hash"`
	Size         int64              `json:"size"`
	ModTime      time.Time          `json:"mod_time"`
}

// Manifest lists the outputs of one production, sorted by relative path.
// It carries enough state to validate those outputs are still on disk as
// recorded.
type Manifest []FileEntry

// ComputeManifest walks the workspace directory and records every output
// file. The store's own data (.executionHistory) and the lock sentinel
// are not outputs and are skipped.
func ComputeManifest(dir string) (Manifest, error) {
	var m Manifest
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if rel == cachedir.HistoryDirName {
				return filepath.SkipDir
			}
			return nil
		}
		if rel == cachedir.LockFileName {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		hash, err := fingerprint.HashFile(path)
		if err != nil {
			return err
		}
		m = append(m, FileEntry{
			RelativePath: filepath.ToSlash(rel),
			ContentHash:  hash,
			Size:         info.Size(),
			ModTime:      info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("history: computing manifest for %s: %w", dir, err)
	}

	sort.Slice(m, func(i, j int) bool { return m[i].RelativePath < m[j].RelativePath })
	return m, nil
}

// Validate checks that every recorded output still matches the files on
// disk. Unchanged size and modification time is accepted without
// rehashing; anything else is verified by content hash.
func (m Manifest) Validate(dir string) error {
	for _, fe := range m {
		path := filepath.Join(dir, filepath.FromSlash(fe.RelativePath))
		info, err := os.Stat(path)
		if err != nil {
			return &MismatchError{RelativePath: fe.RelativePath, Reason: "is missing"}
		}
		if info.Size() != fe.Size {
			return &MismatchError{
				RelativePath: fe.RelativePath,
				Reason:       fmt.Sprintf("changed size (%d -> %d)", fe.Size, info.Size()),
			}
		}
		if info.ModTime().UTC().Equal(fe.ModTime) {
			continue
		}
		hash, err := fingerprint.HashFile(path)
		if err != nil {
			return &MismatchError{RelativePath: fe.RelativePath, Reason: "is unreadable"}
		}
		if !hash.Equal(fe.ContentHash) {
			return &MismatchError{RelativePath: fe.RelativePath, Reason: "changed content"}
		}
	}
	return nil
}

// Paths returns the relative paths listed in the manifest.
func (m Manifest) Paths() []string {
	paths := make([]string, len(m))
	for i, fe := range m {
		paths[i] = fe.RelativePath
	}
	return paths
}
