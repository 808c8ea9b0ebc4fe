// Package cli constructs the npm-node-sync command-line interface, wiring the
// Cobra command hierarchy, the configuration loader and structured logging.
package cli
