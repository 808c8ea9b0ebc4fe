package releasenotes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v75/github"

	"github.com/temirov/npm-node-sync/internal/gitrepo"
)

const (
	// SourceGitHubCLI fetches notes with gh release view.
	SourceGitHubCLI = "gh"
	// SourceGitHubAPI fetches notes from the GitHub REST API.
	SourceGitHubAPI = "api"

	releaseTagTemplateConstant                = "v%s"
	trailingSlashConstant                     = "/"
	releaseViewerNotConfiguredMessageConstant = "release viewer not configured"
	httpClientNotConfiguredMessageConstant    = "github api http client not configured"
	unsupportedSourceTemplateConstant         = "unsupported release notes source %q (expected %s or %s)"
	apiBaseURLErrorTemplateConstant           = "parse github api base url %q: %w"
	apiReleaseErrorTemplateConstant           = "fetch release %s from %s: %w"
)

// NoteSource returns the release notes published for one version.
type NoteSource interface {
	ReleaseNotes(executionContext context.Context, version string) (string, error)
}

// ReleaseViewer is the subset of githubcli.Client used to read releases.
type ReleaseViewer interface {
	ViewReleaseNotes(executionContext context.Context, repository string, tag string) (string, error)
}

var (
	// ErrReleaseViewerNotConfigured indicates a nil release viewer was provided.
	ErrReleaseViewerNotConfigured = errors.New(releaseViewerNotConfiguredMessageConstant)
	// ErrHTTPClientNotConfigured indicates a nil HTTP client was provided.
	ErrHTTPClientNotConfigured = errors.New(httpClientNotConfiguredMessageConstant)
)

// UnsupportedSourceError reports an unknown release notes source name.
type UnsupportedSourceError struct {
	Source string
}

// Error describes the unknown source.
func (sourceError UnsupportedSourceError) Error() string {
	return fmt.Sprintf(unsupportedSourceTemplateConstant, sourceError.Source, SourceGitHubCLI, SourceGitHubAPI)
}

// ValidateSource normalizes a configured source name.
func ValidateSource(source string) (string, error) {
	normalizedSource := strings.ToLower(strings.TrimSpace(source))
	switch normalizedSource {
	case "":
		return SourceGitHubCLI, nil
	case SourceGitHubCLI, SourceGitHubAPI:
		return normalizedSource, nil
	default:
		return "", UnsupportedSourceError{Source: source}
	}
}

// GitHubCLISource reads notes with gh release view.
type GitHubCLISource struct {
	viewer     ReleaseViewer
	repository gitrepo.Repository
}

// NewGitHubCLISource constructs a gh backed source for releases of repository.
func NewGitHubCLISource(viewer ReleaseViewer, repository gitrepo.Repository) (*GitHubCLISource, error) {
	if viewer == nil {
		return nil, ErrReleaseViewerNotConfigured
	}
	return &GitHubCLISource{viewer: viewer, repository: repository}, nil
}

// ReleaseNotes returns the body of the v<version> release.
func (source *GitHubCLISource) ReleaseNotes(executionContext context.Context, version string) (string, error) {
	return source.viewer.ViewReleaseNotes(executionContext, source.repository.FullName(), fmt.Sprintf(releaseTagTemplateConstant, version))
}

// GitHubAPISource reads notes from the GitHub REST API.
type GitHubAPISource struct {
	client     *github.Client
	repository gitrepo.Repository
}

// NewGitHubAPISource constructs a REST backed source. The HTTP client carries authentication;
// an empty apiBaseURL targets api.github.com.
func NewGitHubAPISource(httpClient *http.Client, repository gitrepo.Repository, apiBaseURL string) (*GitHubAPISource, error) {
	if httpClient == nil {
		return nil, ErrHTTPClientNotConfigured
	}
	client := github.NewClient(httpClient)
	if trimmedBaseURL := strings.TrimSpace(apiBaseURL); len(trimmedBaseURL) > 0 {
		if !strings.HasSuffix(trimmedBaseURL, trailingSlashConstant) {
			trimmedBaseURL += trailingSlashConstant
		}
		parsedBaseURL, parseError := url.Parse(trimmedBaseURL)
		if parseError != nil {
			return nil, fmt.Errorf(apiBaseURLErrorTemplateConstant, apiBaseURL, parseError)
		}
		client.BaseURL = parsedBaseURL
	}
	return &GitHubAPISource{client: client, repository: repository}, nil
}

// ReleaseNotes returns the body of the v<version> release.
func (source *GitHubAPISource) ReleaseNotes(executionContext context.Context, version string) (string, error) {
	releaseTag := fmt.Sprintf(releaseTagTemplateConstant, version)
	release, _, releaseError := source.client.Repositories.GetReleaseByTag(executionContext, source.repository.Owner, source.repository.Name, releaseTag)
	if releaseError != nil {
		return "", fmt.Errorf(apiReleaseErrorTemplateConstant, releaseTag, source.repository.FullName(), releaseError)
	}
	return release.GetBody(), nil
}
