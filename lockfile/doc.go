// Package lockfile provides advisory file locking that is effective across
// OS processes sharing a cache root, not just goroutines within one process.
//
// Locks are keyed by the sentinel file path. Each lock is layered: an
// in-process reader/writer gate serializes goroutines, and an OS-level
// flock on the sentinel excludes other processes. Acquisition blocks up to
// a configured timeout and then fails with a TimeoutError; the manager
// never retries on the caller's behalf.
//
// Scoped acquisition via WithLock guarantees release on every exit path
// and makes reentrant acquisition within a held scope safe.
package lockfile
