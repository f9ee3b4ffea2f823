// Package workspace orchestrates the cache engine: it resolves a directory
// for an identity, serializes access through an exclusive lock, consults
// the execution history to decide hit or miss, runs the caller's production
// action on miss, and records access times for retention.
//
// A Provider degrades to recomputation on every recoverable anomaly
// (corrupt history, stale manifest, failed journal write) and only
// propagates lock timeouts, production failures, and directory allocation
// errors to the caller.
package workspace
