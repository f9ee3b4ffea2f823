// Package history persists the map from (identity, input fingerprint) to
// output manifest that lets the workspace provider answer "has this
// already been computed?".
//
// Entries are immutable once written: a new fingerprint produces a new
// entry, never an in-place mutation of a prior one. Corrupt or unreadable
// entries surface as CorruptEntryError so callers can degrade to a cache
// miss instead of failing the build.
package history
