package registry_test

import (
	"context"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/npm-node-sync/internal/registry"
)

const testTarballContentConstant = "package tarball bytes"

func newTestRegistryServer(testInstance *testing.T) *httptest.Server {
	testInstance.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/npm", func(responseWriter http.ResponseWriter, request *http.Request) {
		if request.Header.Get("Accept") != "application/json" {
			responseWriter.WriteHeader(http.StatusNotAcceptable)
			return
		}
		fmt.Fprint(responseWriter, testPackumentDocumentConstant)
	})
	mux.HandleFunc("/tarballs/npm-10.9.0.tgz", func(responseWriter http.ResponseWriter, request *http.Request) {
		fmt.Fprint(responseWriter, testTarballContentConstant)
	})
	server := httptest.NewServer(mux)
	testInstance.Cleanup(server.Close)
	return server
}

func newTestRegistryClient(testInstance *testing.T, server *httptest.Server) *registry.Client {
	testInstance.Helper()
	client, creationError := registry.NewClient(zap.NewNop(), server.Client(), registry.ServiceConfiguration{BaseURL: server.URL + "/"})
	require.NoError(testInstance, creationError)
	return client
}

func sha512Integrity(content string) string {
	digest := sha512.Sum512([]byte(content))
	return "sha512-" + base64.StdEncoding.EncodeToString(digest[:])
}

func TestNewClientValidation(testInstance *testing.T) {
	_, loggerError := registry.NewClient(nil, http.DefaultClient, registry.ServiceConfiguration{})
	require.ErrorIs(testInstance, loggerError, registry.ErrLoggerNotConfigured)

	_, clientError := registry.NewClient(zap.NewNop(), nil, registry.ServiceConfiguration{})
	require.ErrorIs(testInstance, clientError, registry.ErrHTTPClientNotConfigured)
}

func TestResolveManifestFromServer(testInstance *testing.T) {
	server := newTestRegistryServer(testInstance)
	client := newTestRegistryClient(testInstance, server)

	manifest, packument, resolveError := client.ResolveManifest(context.Background(), "npm", "latest")
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, "10.9.0", manifest.Version)
	require.Equal(testInstance, "npm@latest", manifest.SourceReference)
	require.Len(testInstance, packument.PublishedVersions(), 5)
}

func TestFetchPackumentReportsStatus(testInstance *testing.T) {
	server := newTestRegistryServer(testInstance)
	client := newTestRegistryClient(testInstance, server)

	_, fetchError := client.FetchPackument(context.Background(), "does-not-exist")
	var statusError registry.HTTPStatusError
	require.ErrorAs(testInstance, fetchError, &statusError)
	require.Equal(testInstance, http.StatusNotFound, statusError.StatusCode)
}

func TestDownloadTarballVerifiesIntegrity(testInstance *testing.T) {
	server := newTestRegistryServer(testInstance)
	client := newTestRegistryClient(testInstance, server)
	sha1Digest := sha1.Sum([]byte(testTarballContentConstant))

	testCases := []struct {
		name        string
		dist        registry.Dist
		expectError any
	}{
		{
			name: "sha512_integrity",
			dist: registry.Dist{Integrity: sha512Integrity(testTarballContentConstant)},
		},
		{
			name: "strongest_algorithm_wins",
			dist: registry.Dist{Integrity: "sha1-ignored " + sha512Integrity(testTarballContentConstant)},
		},
		{
			name: "legacy_shasum",
			dist: registry.Dist{Shasum: hex.EncodeToString(sha1Digest[:])},
		},
		{
			name:        "mismatch",
			dist:        registry.Dist{Integrity: sha512Integrity("something else")},
			expectError: registry.IntegrityError{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			destination := testInstance.TempDir()
			manifest := registry.Manifest{Name: "npm", Version: "10.9.0", Dist: testCase.dist}
			manifest.Dist.Tarball = server.URL + "/tarballs/npm-10.9.0.tgz"

			tarballPath, downloadError := client.DownloadTarball(context.Background(), manifest, destination)
			if testCase.expectError != nil {
				require.IsType(testInstance, testCase.expectError, downloadError)
				require.NoFileExists(testInstance, filepath.Join(destination, "npm-10.9.0.tgz"))
				return
			}
			require.NoError(testInstance, downloadError)
			require.Equal(testInstance, filepath.Join(destination, "npm-10.9.0.tgz"), tarballPath)
			content, readError := os.ReadFile(tarballPath)
			require.NoError(testInstance, readError)
			require.Equal(testInstance, testTarballContentConstant, string(content))
		})
	}
}

func TestDownloadTarballRequiresDigest(testInstance *testing.T) {
	server := newTestRegistryServer(testInstance)
	client := newTestRegistryClient(testInstance, server)

	manifest := registry.Manifest{Name: "npm", Version: "10.9.0", Dist: registry.Dist{Tarball: server.URL + "/tarballs/npm-10.9.0.tgz"}}
	_, downloadError := client.DownloadTarball(context.Background(), manifest, testInstance.TempDir())
	require.ErrorIs(testInstance, downloadError, registry.ErrIntegrityUnavailable)
}

func TestDownloadTarballNamesScopedPackages(testInstance *testing.T) {
	server := newTestRegistryServer(testInstance)
	client := newTestRegistryClient(testInstance, server)

	manifest := registry.Manifest{
		Name:    "@npmcli/arborist",
		Version: "10.9.0",
		Dist:    registry.Dist{Tarball: server.URL + "/tarballs/npm-10.9.0.tgz", Integrity: sha512Integrity(testTarballContentConstant)},
	}
	tarballPath, downloadError := client.DownloadTarball(context.Background(), manifest, testInstance.TempDir())
	require.NoError(testInstance, downloadError)
	require.Equal(testInstance, "npmcli-arborist-10.9.0.tgz", filepath.Base(tarballPath))
}
