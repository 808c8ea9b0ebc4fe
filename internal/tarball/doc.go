// Package tarball assembles the npm release tarball that gets vendored into Node.js.
//
// Assembler downloads the published tarball and, unless registry-only mode is
// requested, merges test fixtures from the npm working tree into it and
// re-packs it with deterministic npm pack settings. Extract and Pack are the
// archive primitives shared with the repository sync.
package tarball
