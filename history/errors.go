package history

import (
	"errors"
	"fmt"
)

// Sentinel errors for the execution history store.
var (
	// ErrEntryNotFound is returned by Get when no entry exists for the
	// fingerprint.
	ErrEntryNotFound = errors.New("history: entry not found")

	// ErrCorruptEntry marks a malformed or unreadable entry. Callers are
	// expected to treat it as a miss and recompute.
	ErrCorruptEntry = errors.New("history: corrupt entry")

	// ErrManifestMismatch marks recorded outputs that no longer match the
	// files on disk. Callers are expected to treat it as a miss.
	ErrManifestMismatch = errors.New("history: manifest does not match disk state")
)

// CorruptEntryError reports an entry that could not be decoded.
type CorruptEntryError struct {
	Path string
	Err  error
}

func (e *CorruptEntryError) Error() string {
	return fmt.Sprintf("history: corrupt entry %s: %v", e.Path, e.Err)
}

func (e *CorruptEntryError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrCorruptEntry) match a *CorruptEntryError.
func (e *CorruptEntryError) Is(target error) bool { return target == ErrCorruptEntry }

// MismatchError reports the first recorded output that failed validation.
type MismatchError struct {
	RelativePath string
	Reason       string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("history: output %s %s", e.RelativePath, e.Reason)
}

// Is makes errors.Is(err, ErrManifestMismatch) match a *MismatchError.
func (e *MismatchError) Is(target error) bool { return target == ErrManifestMismatch }
