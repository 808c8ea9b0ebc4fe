// Package githubcli wraps the GitHub CLI for npm-node-sync.
//
// It layers typed request and response structures over the gh subcommands the
// sync needs (repository lookup, pull request listing and mutation, release
// notes) and runs them through execshell so tests can record invocations.
package githubcli
