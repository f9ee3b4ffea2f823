// Package journal records the last time each cache entry was used, the
// input to access-time-driven retention.
//
// The durable implementation is a single upsertable SQLite table shared
// by all identities under one cache root. Touch is called on the
// workspace hot path, so implementations must stay cheap and callers must
// treat failures as best-effort bookkeeping, never a build failure.
// Records are monotonically non-decreasing: a touch with an older
// timestamp than the stored one is ignored.
package journal
