// Package cachedir allocates named, versioned cache directories under a
// shared root.
//
// A directory path is a deterministic function of (root, schema version,
// name): two builders with the same name under the same root resolve to
// the same path, which is the basis for cross-process sharing. Display
// names are diagnostic only and never influence path resolution.
package cachedir
