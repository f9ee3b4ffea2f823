// Package retention evicts cache entries nobody has touched recently.
//
// An Engine periodically scans the versioned cache root, compares each
// identity's last access time from the journal against the configured
// maximum age, and deletes expired entries. Entries whose workspace lock
// is held are skipped for the cycle and reconsidered on the next sweep, so
// eviction never races a concurrent reader or writer.
package retention
