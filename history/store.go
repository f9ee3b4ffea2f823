package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jonwraymond/buildcache/fingerprint"
)

// FormatVersion is bumped whenever the on-disk entry layout changes.
// Entries written by a different format are treated as corrupt (and thus
// as misses) rather than migrated.
const FormatVersion = 1

const entrySuffix = ".json"

// Entry links a fingerprint to the validated outputs it produced.
type Entry struct {
	Identity    string             `json:"identity"`
	Fingerprint fingerprint.Digest `json:"fingerprint"`
	Manifest    Manifest           `json:"manifest"`
	RecordedAt  time.Time          `json:"recorded_at"`
}

type entryBlob struct {
	Version int `json:"version"`
	Entry
}

// Store persists execution history entries for a single identity under
// its workspace's .executionHistory directory.
//
// Contract:
// - Concurrency: callers must hold the workspace's lock; the store itself
//   does not lock.
// - Durability: Put is atomic (temp file + rename), so a crash never
//   leaves a partially written entry linked from the store.
// - Errors: unreadable entries yield *CorruptEntryError, never a panic.
type Store struct {
	identity string
	dir      string
}

// NewStore creates a store for identity rooted at the given history
// directory (usually Dir.HistoryPath()).
func NewStore(identity, dir string) *Store {
	return &Store{identity: identity, dir: dir}
}

// Identity returns the identity this store belongs to.
func (s *Store) Identity() string { return s.identity }

// Get loads the entry for the fingerprint. Returns ErrEntryNotFound when
// absent and *CorruptEntryError when the blob cannot be decoded.
func (s *Store) Get(fp fingerprint.Digest) (*Entry, error) {
	path := s.entryPath(fp)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrEntryNotFound
		}
		return nil, &CorruptEntryError{Path: path, Err: err}
	}

	var blob entryBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, &CorruptEntryError{Path: path, Err: err}
	}
	if blob.Version != FormatVersion {
		return nil, &CorruptEntryError{Path: path, Err: fmt.Errorf("format version %d, want %d", blob.Version, FormatVersion)}
	}
	if !blob.Fingerprint.Equal(fp) {
		return nil, &CorruptEntryError{Path: path, Err: errors.New("fingerprint does not match file name")}
	}
	return &blob.Entry, nil
}

// Put persists a new entry. An existing entry for the same fingerprint is
// replaced atomically; entries for other fingerprints are untouched.
func (s *Store) Put(entry *Entry) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("history: creating store directory: %w", err)
	}

	blob := entryBlob{Version: FormatVersion, Entry: *entry}
	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return fmt.Errorf("history: encoding entry: %w", err)
	}

	path := s.entryPath(entry.Fingerprint)
	tmp, err := os.CreateTemp(s.dir, "entry-*")
	if err != nil {
		return fmt.Errorf("history: staging entry: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("history: writing entry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("history: syncing entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("history: closing entry: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("history: linking entry: %w", err)
	}
	return nil
}

// Invalidate removes every entry for this identity.
func (s *Store) Invalidate() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("history: reading store directory: %w", err)
	}
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), entrySuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, de.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("history: removing entry %s: %w", de.Name(), err)
		}
	}
	return nil
}

// List returns every decodable entry, newest first. Corrupt entries are
// skipped; history is diagnostic and must not fail a listing.
func (s *Store) List() ([]*Entry, error) {
	des, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("history: reading store directory: %w", err)
	}

	var out []*Entry
	for _, de := range des {
		if de.IsDir() || !strings.HasSuffix(de.Name(), entrySuffix) {
			continue
		}
		fp, err := fingerprint.ParseDigest(strings.TrimSuffix(de.Name(), entrySuffix))
		if err != nil {
			continue
		}
		entry, err := s.Get(fp)
		if err != nil {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	return out, nil
}

func (s *Store) entryPath(fp fingerprint.Digest) string {
	return filepath.Join(s.dir, fp.String()+entrySuffix)
}
