package releasenotes_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/temirov/npm-node-sync/internal/releasenotes"
)

var publishedNpmVersions = []string{
	"9.9.3",
	"10.8.1",
	"10.8.2",
	"10.8.3",
	"10.9.0-pre.0",
	"10.9.0",
	"10.9.1",
	"11.0.0-pre.0",
	"11.0.0",
	"not-a-version",
}

func TestVersionRange(testInstance *testing.T) {
	testCases := []struct {
		name     string
		current  string
		target   string
		expected []string
	}{
		{
			name:     "minor_jump_within_major",
			current:  "10.8.1",
			target:   "10.9.0",
			expected: []string{"10.8.2", "10.8.3", "10.9.0"},
		},
		{
			name:     "major_jump_keeps_target_major_only",
			current:  "10.9.1",
			target:   "11.0.0",
			expected: []string{"11.0.0"},
		},
		{
			name:     "prerelease_target_includes_prereleases",
			current:  "10.8.3",
			target:   "10.9.0-pre.0",
			expected: []string{"10.9.0-pre.0"},
		},
		{
			name:     "prerelease_excluded_for_stable_target",
			current:  "10.8.3",
			target:   "10.9.1",
			expected: []string{"10.9.0", "10.9.1"},
		},
		{
			name:     "same_version_still_lists_target",
			current:  "10.9.0",
			target:   "10.9.0",
			expected: []string{"10.9.0"},
		},
		{
			name:     "unknown_current_has_no_lower_bound",
			current:  "",
			target:   "10.8.2",
			expected: []string{"10.8.1", "10.8.2"},
		},
		{
			name:     "leading_v_is_accepted",
			current:  "v10.8.2",
			target:   "v10.8.3",
			expected: []string{"10.8.3"},
		},
		{
			name:     "invalid_target",
			current:  "10.8.1",
			target:   "latest",
			expected: nil,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			actual := releasenotes.VersionRange(testCase.current, testCase.target, publishedNpmVersions)
			if difference := cmp.Diff(testCase.expected, actual); len(difference) > 0 {
				testInstance.Fatalf("unexpected range (-want +got):\n%s", difference)
			}
		})
	}
}
