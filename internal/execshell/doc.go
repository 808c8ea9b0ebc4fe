// Package execshell runs the git and gh command-line tools for npm-node-sync.
//
// ShellExecutor wraps a CommandRunner with lifecycle logging, observer
// notifications, secret redaction and typed errors. OSCommandRunner is the
// default runner backed by os/exec; tests substitute recording runners.
package execshell
