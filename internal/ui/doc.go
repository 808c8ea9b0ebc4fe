// Package ui collects user-facing renderings of command activity.
package ui
