package releasenotes

import (
	"sort"
	"strings"

	"golang.org/x/mod/semver"
)

const semverPrefixConstant = "v"

// VersionRange returns every published version v with current < v <= target that shares the
// target's major version, in ascending order. Prereleases are only included when the target is
// itself a prerelease. The target is always part of the result. An empty or invalid current
// version leaves the range without a lower bound.
func VersionRange(current string, target string, published []string) []string {
	canonicalTarget := canonicalVersion(target)
	if !semver.IsValid(canonicalTarget) {
		return nil
	}
	canonicalCurrent := canonicalVersion(current)
	hasLowerBound := semver.IsValid(canonicalCurrent)
	includePrereleases := len(semver.Prerelease(canonicalTarget)) > 0
	targetMajor := semver.Major(canonicalTarget)

	selected := map[string]string{canonicalTarget: strings.TrimPrefix(canonicalTarget, semverPrefixConstant)}
	for _, version := range published {
		canonicalCandidate := canonicalVersion(version)
		if !semver.IsValid(canonicalCandidate) {
			continue
		}
		if semver.Major(canonicalCandidate) != targetMajor {
			continue
		}
		if !includePrereleases && len(semver.Prerelease(canonicalCandidate)) > 0 {
			continue
		}
		if semver.Compare(canonicalCandidate, canonicalTarget) > 0 {
			continue
		}
		if hasLowerBound && semver.Compare(canonicalCandidate, canonicalCurrent) <= 0 {
			continue
		}
		selected[canonicalCandidate] = strings.TrimPrefix(canonicalCandidate, semverPrefixConstant)
	}

	canonicalVersions := make([]string, 0, len(selected))
	for canonicalSelected := range selected {
		canonicalVersions = append(canonicalVersions, canonicalSelected)
	}
	sort.Slice(canonicalVersions, func(leftIndex int, rightIndex int) bool {
		return semver.Compare(canonicalVersions[leftIndex], canonicalVersions[rightIndex]) < 0
	})

	versions := make([]string, 0, len(canonicalVersions))
	for _, canonicalSelected := range canonicalVersions {
		versions = append(versions, selected[canonicalSelected])
	}
	return versions
}

func canonicalVersion(version string) string {
	trimmedVersion := strings.TrimSpace(version)
	if len(trimmedVersion) == 0 {
		return ""
	}
	return semverPrefixConstant + strings.TrimPrefix(trimmedVersion, semverPrefixConstant)
}
