// Package health diagnoses the cache engine's runtime dependencies: is
// the cache root writable, is the access journal reachable, can a
// workspace lock be taken. Build tools surface these results from a
// doctor or diagnostics command instead of failing mid-build.
package health
