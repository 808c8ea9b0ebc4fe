// Package pathutils resolves user supplied filesystem paths.
package pathutils

import (
	"os"
	"path/filepath"
	"strings"
)

const tildeSymbolConstant = "~"

// ExpandHome resolves a leading "~" or "~/" to the current user's home directory. Other paths,
// and all paths when the home directory cannot be determined, are returned unchanged.
func ExpandHome(candidatePath string) string {
	if candidatePath != tildeSymbolConstant &&
		!strings.HasPrefix(candidatePath, tildeSymbolConstant+"/") &&
		!strings.HasPrefix(candidatePath, tildeSymbolConstant+string(os.PathSeparator)) {
		return candidatePath
	}

	homeDirectory, homeDirectoryError := os.UserHomeDir()
	if homeDirectoryError != nil || len(homeDirectory) == 0 {
		return candidatePath
	}
	return filepath.Join(homeDirectory, candidatePath[len(tildeSymbolConstant):])
}

// ResolveDirectory expands the home prefix and makes candidatePath absolute relative to baseDirectory.
func ResolveDirectory(candidatePath string, baseDirectory string) string {
	expandedPath := ExpandHome(strings.TrimSpace(candidatePath))
	if len(expandedPath) == 0 || filepath.IsAbs(expandedPath) {
		return expandedPath
	}
	return filepath.Join(baseDirectory, expandedPath)
}
