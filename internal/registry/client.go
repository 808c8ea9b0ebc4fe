package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the public npm registry.
	DefaultBaseURL = "https://registry.npmjs.org"

	acceptHeaderNameConstant               = "Accept"
	jsonMediaTypeConstant                  = "application/json"
	pathSeparatorConstant                  = "/"
	tarballFileNameTemplateConstant        = "%s-%s.tgz"
	scopeSeparatorConstant                 = "/"
	scopedNameReplacementConstant          = "-"
	scopePrefixConstant                    = "@"
	loggerNotConfiguredMessageConstant     = "registry logger not configured"
	httpClientNotConfiguredMessageConstant = "registry http client not configured"
	httpStatusErrorTemplateConstant        = "GET %s returned %d"
	requestCreationErrorTemplateConstant   = "create request for %s: %w"
	requestErrorTemplateConstant           = "request %s: %w"
	decodeErrorTemplateConstant            = "decode packument for %s: %w"
	downloadFileErrorTemplateConstant      = "write tarball %s: %w"
	missingTarballMessageTemplateConstant  = "manifest %s@%s has no tarball url"
	packageNameLogFieldConstant            = "package"
	versionLogFieldConstant                = "version"
	versionCountLogFieldConstant           = "versions"
	urlLogFieldConstant                    = "url"
	pathLogFieldConstant                   = "path"
	packumentFetchedLogMessageConstant     = "fetched packument"
	tarballDownloadedLogMessageConstant    = "downloaded tarball"
	tarballFilePermissionsConstant         = 0o644
)

// HTTPClient is the subset of *http.Client the registry client relies on.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// ServiceConfiguration tunes the registry endpoint.
type ServiceConfiguration struct {
	BaseURL string
}

var (
	// ErrLoggerNotConfigured indicates a nil logger was provided.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrHTTPClientNotConfigured indicates a nil HTTP client was provided.
	ErrHTTPClientNotConfigured = errors.New(httpClientNotConfiguredMessageConstant)
)

// HTTPStatusError reports an unexpected registry response status.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

// Error describes the status failure.
func (statusError HTTPStatusError) Error() string {
	return fmt.Sprintf(httpStatusErrorTemplateConstant, statusError.URL, statusError.StatusCode)
}

// Client reads packuments and tarballs from an npm registry.
type Client struct {
	logger     *zap.Logger
	httpClient HTTPClient
	baseURL    string
}

// NewClient validates collaborators and constructs a registry client.
func NewClient(logger *zap.Logger, httpClient HTTPClient, configuration ServiceConfiguration) (*Client, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if httpClient == nil {
		return nil, ErrHTTPClientNotConfigured
	}
	baseURL := strings.TrimRight(strings.TrimSpace(configuration.BaseURL), pathSeparatorConstant)
	if len(baseURL) == 0 {
		baseURL = DefaultBaseURL
	}
	return &Client{logger: logger, httpClient: httpClient, baseURL: baseURL}, nil
}

// FetchPackument retrieves the full registry document for a package.
func (client *Client) FetchPackument(executionContext context.Context, packageName string) (Packument, error) {
	packumentURL := client.baseURL + pathSeparatorConstant + url.PathEscape(strings.TrimSpace(packageName))
	response, requestError := client.get(executionContext, packumentURL, jsonMediaTypeConstant)
	if requestError != nil {
		return Packument{}, requestError
	}
	defer response.Body.Close()

	var packument Packument
	if decodingError := json.NewDecoder(response.Body).Decode(&packument); decodingError != nil {
		return Packument{}, fmt.Errorf(decodeErrorTemplateConstant, packageName, decodingError)
	}
	if len(packument.Name) == 0 {
		packument.Name = packageName
	}

	client.logger.Debug(packumentFetchedLogMessageConstant,
		zap.String(packageNameLogFieldConstant, packument.Name),
		zap.Int(versionCountLogFieldConstant, len(packument.Versions)),
	)
	return packument, nil
}

// ResolveManifest fetches the packument and resolves spec against it.
func (client *Client) ResolveManifest(executionContext context.Context, packageName string, spec string) (Manifest, Packument, error) {
	packument, fetchError := client.FetchPackument(executionContext, packageName)
	if fetchError != nil {
		return Manifest{}, Packument{}, fetchError
	}
	manifest, resolveError := packument.Resolve(spec)
	if resolveError != nil {
		return Manifest{}, Packument{}, resolveError
	}
	return manifest, packument, nil
}

// DownloadTarball stores the manifest's tarball in destinationDirectory after verifying its
// integrity and returns the file path. A file that fails verification is removed.
func (client *Client) DownloadTarball(executionContext context.Context, manifest Manifest, destinationDirectory string) (string, error) {
	tarballURL := strings.TrimSpace(manifest.Dist.Tarball)
	if len(tarballURL) == 0 {
		return "", fmt.Errorf(missingTarballMessageTemplateConstant, manifest.Name, manifest.Version)
	}

	verifier, verifierError := NewIntegrityVerifier(manifest.Dist)
	if verifierError != nil {
		return "", verifierError
	}

	response, requestError := client.get(executionContext, tarballURL, "")
	if requestError != nil {
		return "", requestError
	}
	defer response.Body.Close()

	tarballPath := filepath.Join(destinationDirectory, tarballFileName(manifest))
	tarballFile, createError := os.OpenFile(tarballPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, tarballFilePermissionsConstant)
	if createError != nil {
		return "", fmt.Errorf(downloadFileErrorTemplateConstant, tarballPath, createError)
	}

	_, copyError := io.Copy(io.MultiWriter(tarballFile, verifier), response.Body)
	closeError := tarballFile.Close()
	if writeError := errors.Join(copyError, closeError); writeError != nil {
		_ = os.Remove(tarballPath)
		return "", fmt.Errorf(downloadFileErrorTemplateConstant, tarballPath, writeError)
	}

	if verificationError := verifier.Verify(); verificationError != nil {
		_ = os.Remove(tarballPath)
		return "", verificationError
	}

	client.logger.Debug(tarballDownloadedLogMessageConstant,
		zap.String(packageNameLogFieldConstant, manifest.Name),
		zap.String(versionLogFieldConstant, manifest.Version),
		zap.String(urlLogFieldConstant, tarballURL),
		zap.String(pathLogFieldConstant, tarballPath),
	)
	return tarballPath, nil
}

func (client *Client) get(executionContext context.Context, requestURL string, acceptMediaType string) (*http.Response, error) {
	request, requestCreationError := http.NewRequestWithContext(executionContext, http.MethodGet, requestURL, nil)
	if requestCreationError != nil {
		return nil, fmt.Errorf(requestCreationErrorTemplateConstant, requestURL, requestCreationError)
	}
	if len(acceptMediaType) > 0 {
		request.Header.Set(acceptHeaderNameConstant, acceptMediaType)
	}

	response, requestError := client.httpClient.Do(request)
	if requestError != nil {
		return nil, fmt.Errorf(requestErrorTemplateConstant, requestURL, requestError)
	}
	if response.StatusCode != http.StatusOK {
		response.Body.Close()
		return nil, HTTPStatusError{URL: requestURL, StatusCode: response.StatusCode}
	}
	return response, nil
}

// tarballFileName mirrors npm pack naming: @scope/name becomes scope-name.
func tarballFileName(manifest Manifest) string {
	flattenedName := strings.TrimPrefix(manifest.Name, scopePrefixConstant)
	flattenedName = strings.ReplaceAll(flattenedName, scopeSeparatorConstant, scopedNameReplacementConstant)
	return fmt.Sprintf(tarballFileNameTemplateConstant, flattenedName, manifest.Version)
}
