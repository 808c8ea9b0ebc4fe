// Package workflow runs one npm update end to end: resolve the release,
// assemble its tarball, sync it into the Node.js clone, and reconcile the
// pull request that carries it. The run outcome is summarized as a YAML report.
package workflow
