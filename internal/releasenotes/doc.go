// Package releasenotes builds the pull request body for an npm update.
//
// VersionRange picks the releases an update jumps over, a NoteSource fetches
// their notes (through gh or the GitHub REST API), and Aggregator fans the
// fetches out, restores version order and rewrites the Markdown.
package releasenotes
