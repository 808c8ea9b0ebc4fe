package tarball

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/npm-node-sync/internal/execshell"
	"github.com/temirov/npm-node-sync/internal/registry"
)

const (
	// DefaultPlaceholderConfigFile is written empty into the extracted package.
	DefaultPlaceholderConfigFile = ".npmrc"

	gitStatusSubcommandConstant             = "status"
	gitPorcelainFlagConstant                = "--porcelain"
	gitCheckoutSubcommandConstant           = "checkout"
	extractedDirectoryNameConstant          = "package"
	placeholderFileModeConstant             = 0o644
	loggerNotConfiguredMessageConstant      = "tarball assembler logger not configured"
	gitExecutorNotConfiguredMessageConstant = "tarball assembler git executor not configured"
	downloaderNotConfiguredMessageConstant  = "tarball assembler downloader not configured"
	dirtyWorkingTreeMessageTemplateConstant = "working tree %s has uncommitted changes; commit or stash them, or use local-test mode"
	tagCheckoutErrorTemplateConstant        = "checkout %s in %s failed (try `git fetch --tags`): %w"
	statusErrorTemplateConstant             = "inspect working tree %s: %w"
	extractErrorTemplateConstant            = "extract %s: %w"
	fixtureCopyErrorTemplateConstant        = "copy fixture %s: %w"
	placeholderErrorTemplateConstant        = "write %s: %w"
	repackErrorTemplateConstant             = "repack %s: %w"
	removeDownloadErrorTemplateConstant     = "remove downloaded tarball %s: %w"
	fixtureLogFieldConstant                 = "fixture"
	tarballLogFieldConstant                 = "tarball"
	versionLogFieldConstant                 = "version"
	registryOnlyLogMessageConstant          = "using registry tarball unmodified"
	fixtureMissingLogMessageConstant        = "fixture path missing from working tree"
	localTestCheckoutLogMessageConstant     = "local test mode: skipping release tag checkout"
	gitHeadFallbackLogMessageConstant       = "release tag checkout failed, checking out published git head"
	gitHeadLogFieldConstant                 = "git_head"
	missingReleaseTagMessageConstant        = "release tag not provided"
	tarballAssembledLogMessageConstant      = "assembled tarball with fixtures"
)

// DefaultFixturePaths are copied from the npm working tree into the repacked tarball.
var DefaultFixturePaths = []string{"tap-snapshots", "test"}

// GitExecutor is the subset of execshell.ShellExecutor used for working tree checks.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// TarballDownloader fetches and verifies a published tarball.
type TarballDownloader interface {
	DownloadTarball(executionContext context.Context, manifest registry.Manifest, destinationDirectory string) (string, error)
}

var (
	// ErrLoggerNotConfigured indicates a nil logger was provided.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrGitExecutorNotConfigured indicates a nil git executor was provided.
	ErrGitExecutorNotConfigured = errors.New(gitExecutorNotConfiguredMessageConstant)
	// ErrDownloaderNotConfigured indicates a nil downloader was provided.
	ErrDownloaderNotConfigured = errors.New(downloaderNotConfiguredMessageConstant)
	// ErrReleaseTagMissing indicates neither a release tag nor a published git head is available.
	ErrReleaseTagMissing = errors.New(missingReleaseTagMessageConstant)
)

// DirtyWorkingTreeError reports uncommitted changes in the npm working tree.
type DirtyWorkingTreeError struct {
	WorkingTree string
	Status      string
}

// Error describes the dirty tree.
func (dirtyError DirtyWorkingTreeError) Error() string {
	return fmt.Sprintf(dirtyWorkingTreeMessageTemplateConstant, dirtyError.WorkingTree)
}

// ServiceDependencies enumerates collaborators required by the assembler.
type ServiceDependencies struct {
	Logger      *zap.Logger
	GitExecutor GitExecutor
	Downloader  TarballDownloader
}

// AssemblyOptions describes one assembly.
type AssemblyOptions struct {
	Manifest              registry.Manifest
	ReleaseTag            string
	WorkingTree           string
	TemporaryDirectory    string
	RegistryOnly          bool
	LocalTest             bool
	FixturePaths          []string
	PlaceholderConfigFile string
}

// Assembler produces the tarball to vendor.
type Assembler struct {
	logger      *zap.Logger
	gitExecutor GitExecutor
	downloader  TarballDownloader
}

// NewAssembler validates dependencies and constructs an Assembler.
func NewAssembler(dependencies ServiceDependencies) (*Assembler, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if dependencies.Downloader == nil {
		return nil, ErrDownloaderNotConfigured
	}
	return &Assembler{logger: dependencies.Logger, gitExecutor: dependencies.GitExecutor, downloader: dependencies.Downloader}, nil
}

// Assemble returns the path of the tarball to vendor. It refuses a dirty working tree unless
// LocalTest is set, then downloads the published tarball. In registry-only mode the download is
// returned as is. Otherwise the release tag is checked out, falling back to the manifest git head
// when the tag cannot be checked out, fixtures are merged and the result is repacked in place of
// the download.
func (assembler *Assembler) Assemble(executionContext context.Context, options AssemblyOptions) (string, error) {
	if !options.LocalTest {
		if cleanError := assembler.ensureCleanWorkingTree(executionContext, options.WorkingTree); cleanError != nil {
			return "", cleanError
		}
	}

	downloadedPath, downloadError := assembler.downloader.DownloadTarball(executionContext, options.Manifest, options.TemporaryDirectory)
	if downloadError != nil {
		return "", downloadError
	}

	if options.RegistryOnly {
		assembler.logger.Info(registryOnlyLogMessageConstant, zap.String(tarballLogFieldConstant, downloadedPath))
		return downloadedPath, nil
	}

	extractedDirectory := filepath.Join(options.TemporaryDirectory, extractedDirectoryNameConstant)
	if extractError := Extract(downloadedPath, extractedDirectory, 1); extractError != nil {
		return "", fmt.Errorf(extractErrorTemplateConstant, downloadedPath, extractError)
	}
	if removeError := os.Remove(downloadedPath); removeError != nil {
		return "", fmt.Errorf(removeDownloadErrorTemplateConstant, downloadedPath, removeError)
	}

	if checkoutError := assembler.checkoutReleaseTag(executionContext, options); checkoutError != nil {
		return "", checkoutError
	}

	placeholderName := options.PlaceholderConfigFile
	if len(strings.TrimSpace(placeholderName)) == 0 {
		placeholderName = DefaultPlaceholderConfigFile
	}
	placeholderPath := filepath.Join(extractedDirectory, placeholderName)
	if writeError := os.WriteFile(placeholderPath, nil, placeholderFileModeConstant); writeError != nil {
		return "", fmt.Errorf(placeholderErrorTemplateConstant, placeholderPath, writeError)
	}

	if copyError := assembler.copyFixtures(options, extractedDirectory); copyError != nil {
		return "", copyError
	}

	packOptions := PackOptions{Prefix: PackagePrefix, ExecutablePaths: options.Manifest.Bin.Paths()}
	if packError := Pack(extractedDirectory, downloadedPath, packOptions); packError != nil {
		return "", fmt.Errorf(repackErrorTemplateConstant, downloadedPath, packError)
	}

	assembler.logger.Info(tarballAssembledLogMessageConstant,
		zap.String(tarballLogFieldConstant, downloadedPath),
		zap.String(versionLogFieldConstant, options.Manifest.Version),
	)
	return downloadedPath, nil
}

func (assembler *Assembler) ensureCleanWorkingTree(executionContext context.Context, workingTree string) error {
	statusResult, statusError := assembler.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitStatusSubcommandConstant, gitPorcelainFlagConstant},
		WorkingDirectory: workingTree,
	})
	if statusError != nil {
		return fmt.Errorf(statusErrorTemplateConstant, workingTree, statusError)
	}
	trimmedStatus := strings.TrimSpace(statusResult.StandardOutput)
	if len(trimmedStatus) > 0 {
		return DirtyWorkingTreeError{WorkingTree: workingTree, Status: trimmedStatus}
	}
	return nil
}

func (assembler *Assembler) checkoutReleaseTag(executionContext context.Context, options AssemblyOptions) error {
	releaseTag := strings.TrimSpace(options.ReleaseTag)
	gitHead := strings.TrimSpace(options.Manifest.GitHead)
	if options.LocalTest {
		assembler.logger.Info(localTestCheckoutLogMessageConstant, zap.String(versionLogFieldConstant, releaseTag))
		return nil
	}
	if len(releaseTag) == 0 {
		if len(gitHead) == 0 {
			return ErrReleaseTagMissing
		}
		return assembler.checkoutRevision(executionContext, options.WorkingTree, gitHead)
	}

	tagError := assembler.checkoutRevision(executionContext, options.WorkingTree, releaseTag)
	if tagError == nil || len(gitHead) == 0 {
		return tagError
	}
	assembler.logger.Warn(gitHeadFallbackLogMessageConstant,
		zap.String(versionLogFieldConstant, releaseTag),
		zap.String(gitHeadLogFieldConstant, gitHead),
		zap.Error(tagError))
	if assembler.checkoutRevision(executionContext, options.WorkingTree, gitHead) != nil {
		return tagError
	}
	return nil
}

func (assembler *Assembler) checkoutRevision(executionContext context.Context, workingTree string, revision string) error {
	_, checkoutError := assembler.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        []string{gitCheckoutSubcommandConstant, revision},
		WorkingDirectory: workingTree,
	})
	if checkoutError != nil {
		return fmt.Errorf(tagCheckoutErrorTemplateConstant, revision, workingTree, checkoutError)
	}
	return nil
}

func (assembler *Assembler) copyFixtures(options AssemblyOptions, extractedDirectory string) error {
	fixturePaths := options.FixturePaths
	if len(fixturePaths) == 0 {
		fixturePaths = DefaultFixturePaths
	}
	for _, fixturePath := range fixturePaths {
		sourcePath := filepath.Join(options.WorkingTree, fixturePath)
		if _, statError := os.Stat(sourcePath); errors.Is(statError, os.ErrNotExist) {
			assembler.logger.Warn(fixtureMissingLogMessageConstant, zap.String(fixtureLogFieldConstant, sourcePath))
			continue
		}
		if copyError := CopyTree(sourcePath, filepath.Join(extractedDirectory, fixturePath)); copyError != nil {
			return fmt.Errorf(fixtureCopyErrorTemplateConstant, fixturePath, copyError)
		}
	}
	return nil
}
