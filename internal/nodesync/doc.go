// Package nodesync drives the git steps that land a new npm tarball in a local Node.js clone.
//
// Driver resets the base branch, recreates the working branch, replaces the
// vendored npm directory, commits, rebases and force-pushes to the fork.
// ReadVendoredVersion inspects the committed npm version with go-git.
package nodesync
