package gitrepo_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/npm-node-sync/internal/gitrepo"
)

func TestParseRepository(testInstance *testing.T) {
	testCases := []struct {
		name        string
		input       string
		expected    gitrepo.Repository
		expectError bool
	}{
		{
			name:     "owner_and_name",
			input:    "nodejs/node",
			expected: gitrepo.Repository{Host: "github.com", Owner: "nodejs", Name: "node"},
		},
		{
			name:     "https_remote",
			input:    "https://github.com/npm/node.git",
			expected: gitrepo.Repository{Host: "github.com", Owner: "npm", Name: "node"},
		},
		{
			name:     "scp_style_remote",
			input:    "git@github.com:octocat/node.git",
			expected: gitrepo.Repository{Host: "github.com", Owner: "octocat", Name: "node"},
		},
		{
			name:     "ssh_remote",
			input:    "ssh://git@github.example.com/octocat/node",
			expected: gitrepo.Repository{Host: "github.example.com", Owner: "octocat", Name: "node"},
		},
		{
			name:        "empty",
			input:       "  ",
			expectError: true,
		},
		{
			name:        "missing_name",
			input:       "nodejs/",
			expectError: true,
		},
		{
			name:        "too_many_segments",
			input:       "nodejs/node/tree",
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repository, parseError := gitrepo.ParseRepository(testCase.input)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				require.IsType(testInstance, gitrepo.RepositoryParseError{}, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expected, repository)
		})
	}
}

func TestRepositoryURLs(testInstance *testing.T) {
	baseRepository := gitrepo.Repository{Host: "github.com", Owner: "nodejs", Name: "node"}
	forkRepository := gitrepo.Repository{Owner: "npm", Name: "node"}

	require.Equal(testInstance, "nodejs/node", baseRepository.FullName())
	require.Equal(testInstance, "https://ghp_token@github.com/npm/node", forkRepository.TokenRemoteURL("ghp_token"))
	require.Equal(testInstance,
		"https://github.com/nodejs/node/compare/main...npm:node:npm-v10.9.0?expand=1",
		baseRepository.CompareURL("main", forkRepository, "npm-v10.9.0"),
	)
	require.Equal(testInstance, "https://github.com/npm/cli/releases/tag/v10.9.0", gitrepo.Repository{Owner: "npm", Name: "cli"}.ReleaseTagURL("v10.9.0"))
}
