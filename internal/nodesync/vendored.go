package nodesync

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const (
	packageManifestFileNameConstant     = "package.json"
	vendoredReadErrorTemplateConstant   = "read %s at %s/%s: %w"
	vendoredDecodeErrorTemplateConstant = "decode %s at %s/%s: %w"
	missingVersionMessageConstant       = "manifest has no version"
	notADirectoryMessageConstant        = "not a directory"
)

// EnsureRepository verifies that repositoryPath is an existing git working tree.
func EnsureRepository(repositoryPath string) error {
	directoryInfo, statError := os.Stat(repositoryPath)
	if statError != nil {
		return RepositoryNotFoundError{RepositoryPath: repositoryPath, Cause: statError}
	}
	if !directoryInfo.IsDir() {
		return RepositoryNotFoundError{RepositoryPath: repositoryPath, Cause: errors.New(notADirectoryMessageConstant)}
	}
	if _, openError := git.PlainOpen(repositoryPath); openError != nil {
		return RepositoryNotFoundError{RepositoryPath: repositoryPath, Cause: openError}
	}
	return nil
}

// ReadVendoredVersion returns the npm version committed under vendoredPath on the remote-tracking
// branch remote/branch, without touching the working tree.
func ReadVendoredVersion(repositoryPath string, remote string, branch string, vendoredPath string) (string, error) {
	if len(strings.TrimSpace(vendoredPath)) == 0 {
		vendoredPath = DefaultVendoredPath
	}
	manifestPath := path.Join(vendoredPath, packageManifestFileNameConstant)

	repository, openError := git.PlainOpen(repositoryPath)
	if openError != nil {
		return "", RepositoryNotFoundError{RepositoryPath: repositoryPath, Cause: openError}
	}

	reference, referenceError := repository.Reference(plumbing.NewRemoteReferenceName(remote, branch), true)
	if referenceError != nil {
		return "", fmt.Errorf(vendoredReadErrorTemplateConstant, manifestPath, remote, branch, referenceError)
	}
	commit, commitError := repository.CommitObject(reference.Hash())
	if commitError != nil {
		return "", fmt.Errorf(vendoredReadErrorTemplateConstant, manifestPath, remote, branch, commitError)
	}
	manifestFile, fileError := commit.File(manifestPath)
	if fileError != nil {
		return "", fmt.Errorf(vendoredReadErrorTemplateConstant, manifestPath, remote, branch, fileError)
	}
	manifestContents, contentsError := manifestFile.Contents()
	if contentsError != nil {
		return "", fmt.Errorf(vendoredReadErrorTemplateConstant, manifestPath, remote, branch, contentsError)
	}

	var manifest struct {
		Version string `json:"version"`
	}
	if decodingError := json.Unmarshal([]byte(manifestContents), &manifest); decodingError != nil {
		return "", fmt.Errorf(vendoredDecodeErrorTemplateConstant, manifestPath, remote, branch, decodingError)
	}
	if len(strings.TrimSpace(manifest.Version)) == 0 {
		return "", fmt.Errorf(vendoredDecodeErrorTemplateConstant, manifestPath, remote, branch, errors.New(missingVersionMessageConstant))
	}
	return strings.TrimSpace(manifest.Version), nil
}
