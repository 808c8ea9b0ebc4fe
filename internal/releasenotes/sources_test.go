package releasenotes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/npm-node-sync/internal/releasenotes"
)

type recordingReleaseViewer struct {
	repository string
	tag        string
}

func (viewer *recordingReleaseViewer) ViewReleaseNotes(_ context.Context, repository string, tag string) (string, error) {
	viewer.repository = repository
	viewer.tag = tag
	return "notes for " + tag, nil
}

func TestGitHubCLISourceRequestsVersionTag(testInstance *testing.T) {
	viewer := &recordingReleaseViewer{}
	source, creationError := releasenotes.NewGitHubCLISource(viewer, npmCLIRepository)
	require.NoError(testInstance, creationError)

	notes, notesError := source.ReleaseNotes(context.Background(), "10.9.0")
	require.NoError(testInstance, notesError)
	require.Equal(testInstance, "notes for v10.9.0", notes)
	require.Equal(testInstance, "npm/cli", viewer.repository)
	require.Equal(testInstance, "v10.9.0", viewer.tag)

	_, nilViewerError := releasenotes.NewGitHubCLISource(nil, npmCLIRepository)
	require.ErrorIs(testInstance, nilViewerError, releasenotes.ErrReleaseViewerNotConfigured)
}

func TestGitHubAPISourceReadsReleaseBody(testInstance *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/repos/npm/cli/releases/tags/v10.9.0" {
			http.NotFound(responseWriter, request)
			return
		}
		responseWriter.Header().Set("Content-Type", "application/json")
		_, _ = responseWriter.Write([]byte(`{"tag_name":"v10.9.0","body":"## 10.9.0\n* feat"}`))
	}))
	defer server.Close()

	source, creationError := releasenotes.NewGitHubAPISource(server.Client(), npmCLIRepository, server.URL)
	require.NoError(testInstance, creationError)

	notes, notesError := source.ReleaseNotes(context.Background(), "10.9.0")
	require.NoError(testInstance, notesError)
	require.Equal(testInstance, "## 10.9.0\n* feat", notes)

	_, missingError := source.ReleaseNotes(context.Background(), "10.0.0")
	require.ErrorContains(testInstance, missingError, "fetch release v10.0.0 from npm/cli")

	_, nilClientError := releasenotes.NewGitHubAPISource(nil, npmCLIRepository, "")
	require.ErrorIs(testInstance, nilClientError, releasenotes.ErrHTTPClientNotConfigured)
}

func TestValidateSource(testInstance *testing.T) {
	testCases := []struct {
		name        string
		input       string
		expected    string
		expectError bool
	}{
		{name: "default", input: "", expected: releasenotes.SourceGitHubCLI},
		{name: "cli", input: " GH ", expected: releasenotes.SourceGitHubCLI},
		{name: "api", input: "api", expected: releasenotes.SourceGitHubAPI},
		{name: "unknown", input: "rss", expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			source, validationError := releasenotes.ValidateSource(testCase.input)
			if testCase.expectError {
				require.IsType(testInstance, releasenotes.UnsupportedSourceError{}, validationError)
				return
			}
			require.NoError(testInstance, validationError)
			require.Equal(testInstance, testCase.expected, source)
		})
	}
}
