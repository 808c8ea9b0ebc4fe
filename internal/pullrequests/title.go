package pullrequests

import (
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	// TitlePrefix starts every npm update pull request title and commit message.
	TitlePrefix = "deps: upgrade npm to "

	titleSearchTermConstant = "upgrade npm to"
	semverPrefixConstant    = "v"
)

var titlePattern = regexp.MustCompile(`^deps: upgrade npm to v?(\S+)$`)

// Title returns the pull request title for version.
func Title(version string) string {
	return TitlePrefix + strings.TrimPrefix(strings.TrimSpace(version), semverPrefixConstant)
}

// TitleVersion extracts the npm version from an update pull request title.
func TitleVersion(title string) (string, bool) {
	submatches := titlePattern.FindStringSubmatch(strings.TrimSpace(title))
	if submatches == nil {
		return "", false
	}
	if !semver.IsValid(semverPrefixConstant + submatches[1]) {
		return "", false
	}
	return submatches[1], true
}

func compareVersions(left string, right string) int {
	return semver.Compare(semverPrefixConstant+left, semverPrefixConstant+right)
}
