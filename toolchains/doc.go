// Package toolchains models the test-framework toolchains a build can run
// its suites with. Every toolchain exposes the same capability set: the
// dependency coordinates to add to each configuration bucket and a
// runnable framework descriptor.
//
// Variants are selected by an explicit name through a Registry rather than
// by type, and construction is atomic: concurrent requests for the same
// (name, version) pair observe a single shared instance.
package toolchains
