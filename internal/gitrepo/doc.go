// Package gitrepo describes hosted repositories and the URLs npm-node-sync derives from them.
//
// It parses owner/name identifiers and git remote URLs, and formats the
// token-authenticated push remote, compare links and release tag links.
package gitrepo
