// Package fingerprint derives stable, fixed-length digests from the inputs
// that determine whether previously produced outputs remain valid.
//
// Digests are SHA-256 based. Unordered input sets are canonicalized by
// sorting before combining, so set equality implies digest equality
// regardless of enumeration order. Every value fed to a Hasher is framed
// with its length, so adjacent fields can never collide.
package fingerprint
