package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/temirov/npm-node-sync/internal/gitrepo"
	"github.com/temirov/npm-node-sync/internal/githubcli"
	"github.com/temirov/npm-node-sync/internal/nodesync"
	"github.com/temirov/npm-node-sync/internal/pullrequests"
	"github.com/temirov/npm-node-sync/internal/registry"
	"github.com/temirov/npm-node-sync/internal/releasenotes"
	"github.com/temirov/npm-node-sync/internal/tarball"
)

const (
	temporaryDirectoryPatternConstant        = "npm-node-sync-"
	dependenciesMissingMessageConstant       = "workflow service requires logger, registry, assembler, syncer, github, pull request and notes dependencies"
	forkNotFoundTemplateConstant             = "fork %s not found: %v"
	resolveManifestErrorTemplateConstant     = "resolve %s@%s: %w"
	forkLoginErrorTemplateConstant           = "resolve fork owner: %w"
	forkParseErrorTemplateConstant           = "parse fork repository: %w"
	temporaryDirectoryErrorTemplateConstant  = "create temporary directory: %w"
	assembleErrorTemplateConstant            = "assemble tarball for %s: %w"
	syncErrorTemplateConstant                = "sync %s: %w"
	composeErrorTemplateConstant             = "compose pull request body: %w"
	reconcileErrorTemplateConstant           = "reconcile pull request: %w"
	resolvedLogMessageConstant               = "Resolved npm release"
	vendoredVersionMissingLogMessageConstant = "Unable to read vendored npm version; notes cover the whole major line"
	vendoredVersionLogMessageConstant        = "Read vendored npm version"
	cleanupFailedLogMessageConstant          = "Unable to remove temporary directory"
	runCompletedLogMessageConstant           = "Run completed"
	versionLogFieldConstant                  = "version"
	sourceReferenceLogFieldConstant          = "source_reference"
	previousVersionLogFieldConstant          = "previous_version"
	pathLogFieldConstant                     = "path"
	actionLogFieldConstant                   = "action"
)

// ErrDependenciesNotConfigured indicates a required collaborator is missing.
var ErrDependenciesNotConfigured = errors.New(dependenciesMissingMessageConstant)

// ForkNotFoundError reports a push target that does not exist or is not visible to the token.
type ForkNotFoundError struct {
	Repository string
	Cause      error
}

// Error describes the missing fork.
func (forkError ForkNotFoundError) Error() string {
	return fmt.Sprintf(forkNotFoundTemplateConstant, forkError.Repository, forkError.Cause)
}

// Unwrap exposes the lookup failure.
func (forkError ForkNotFoundError) Unwrap() error {
	return forkError.Cause
}

// ManifestResolver resolves a version spec against the registry.
type ManifestResolver interface {
	ResolveManifest(executionContext context.Context, packageName string, spec string) (registry.Manifest, registry.Packument, error)
}

// TarballAssembler produces the tarball vendored into the Node.js tree.
type TarballAssembler interface {
	Assemble(executionContext context.Context, options tarball.AssemblyOptions) (string, error)
}

// RepositorySyncer commits the tarball to the head branch and pushes it.
type RepositorySyncer interface {
	Sync(executionContext context.Context, options nodesync.SyncOptions) (nodesync.SyncResult, error)
}

// ForkResolver looks up the fork used as push target.
type ForkResolver interface {
	ResolveAuthenticatedLogin(executionContext context.Context) (string, error)
	ResolveRepoMetadata(executionContext context.Context, repository string) (githubcli.RepositoryMetadata, error)
}

// PullRequestReconciler keeps one update pull request per version.
type PullRequestReconciler interface {
	Discover(executionContext context.Context, target pullrequests.Target) (pullrequests.Plan, error)
	Apply(executionContext context.Context, target pullrequests.Target, plan pullrequests.Plan, body string, dryRun bool) (pullrequests.Outcome, error)
}

// BodyComposer renders the pull request body.
type BodyComposer interface {
	Compose(executionContext context.Context, request releasenotes.BodyRequest) (string, error)
}

// CommandTranscript lists the command lines executed during the run.
type CommandTranscript interface {
	Entries() []string
}

// VendoredVersionReader reads the npm version committed on remote/branch.
type VendoredVersionReader func(repositoryPath string, remote string, branch string, vendoredPath string) (string, error)

// Dependencies configures collaborators for the workflow service.
type Dependencies struct {
	Logger                *zap.Logger
	Registry              ManifestResolver
	Assembler             TarballAssembler
	Syncer                RepositorySyncer
	GitHub                ForkResolver
	PullRequests          PullRequestReconciler
	Notes                 BodyComposer
	VendoredVersionReader VendoredVersionReader
	Transcript            CommandTranscript
}

// Service runs npm updates.
type Service struct {
	dependencies Dependencies
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Logger == nil || dependencies.Registry == nil || dependencies.Assembler == nil || dependencies.Syncer == nil ||
		dependencies.GitHub == nil || dependencies.PullRequests == nil || dependencies.Notes == nil {
		return nil, ErrDependenciesNotConfigured
	}
	if dependencies.VendoredVersionReader == nil {
		dependencies.VendoredVersionReader = nodesync.ReadVendoredVersion
	}
	return &Service{dependencies: dependencies}, nil
}

// Execute resolves the release, assembles and syncs it into the Node.js clone, and creates or
// updates the pull request. In dry run nothing leaves the machine.
func (service *Service) Execute(executionContext context.Context, options Options) (Report, error) {
	normalized, validationError := options.normalize(validationRequirements{token: true, workingTree: true})
	if validationError != nil {
		return Report{}, validationError
	}
	if repositoryError := nodesync.EnsureRepository(normalized.NodeDirectory); repositoryError != nil {
		return Report{}, repositoryError
	}

	manifest, packument, resolveError := service.resolveManifest(executionContext, normalized)
	if resolveError != nil {
		return Report{}, resolveError
	}

	base := BaseDescriptor{Repository: normalized.baseRepository, Remote: normalized.BaseRemote, Branch: normalized.BaseBranch}
	forkRepository, forkError := service.resolveFork(executionContext, normalized)
	if forkError != nil {
		return Report{}, forkError
	}
	head := NewHeadDescriptor(manifest.Version, forkRepository, normalized.Token)

	temporaryDirectory, temporaryDirectoryError := os.MkdirTemp(normalized.TemporaryRoot, temporaryDirectoryPatternConstant)
	if temporaryDirectoryError != nil {
		return Report{}, fmt.Errorf(temporaryDirectoryErrorTemplateConstant, temporaryDirectoryError)
	}
	defer service.removeTemporaryDirectory(temporaryDirectory)

	tarballPath, assembleError := service.dependencies.Assembler.Assemble(executionContext, tarball.AssemblyOptions{
		Manifest:           manifest,
		ReleaseTag:         head.Tag,
		WorkingTree:        normalized.WorkingTree,
		TemporaryDirectory: temporaryDirectory,
		RegistryOnly:       normalized.RegistryOnly,
		LocalTest:          normalized.LocalTest,
		FixturePaths:       normalized.FixturePaths,
	})
	if assembleError != nil {
		return Report{}, fmt.Errorf(assembleErrorTemplateConstant, manifest.SourceReference, assembleError)
	}

	syncResult, syncError := service.dependencies.Syncer.Sync(executionContext, nodesync.SyncOptions{
		RepositoryPath: normalized.NodeDirectory,
		BaseRemote:     base.Remote,
		BaseBranch:     base.Branch,
		HeadBranch:     head.Branch,
		VendoredPath:   normalized.VendoredPath,
		TarballPath:    tarballPath,
		CommitMessage:  head.Message,
		ForkRemoteName: head.RemoteName,
		ForkRemoteURL:  head.RemoteURL,
		DryRun:         normalized.DryRun,
	})
	if syncError != nil {
		return Report{}, fmt.Errorf(syncErrorTemplateConstant, normalized.NodeDirectory, syncError)
	}

	previousVersion := service.readPreviousVersion(normalized)
	versions := releasenotes.VersionRange(previousVersion, manifest.Version, packument.PublishedVersions())

	target := pullRequestTarget(base, head)
	plan, body, bodyError := service.composeBody(executionContext, target, versions)
	if bodyError != nil {
		return Report{}, bodyError
	}

	outcome, applyError := service.dependencies.PullRequests.Apply(executionContext, target, plan, body, normalized.DryRun)
	if applyError != nil {
		return Report{}, fmt.Errorf(reconcileErrorTemplateConstant, applyError)
	}

	report := Report{
		Action:             string(outcome.Action),
		Package:            normalized.PackageName,
		Version:            manifest.Version,
		SourceReference:    manifest.SourceReference,
		PreviousVersion:    previousVersion,
		Versions:           versions,
		BaseRepository:     base.Repository.FullName(),
		BaseBranch:         base.Branch,
		ForkRepository:     head.ForkRepository.FullName(),
		HeadBranch:         head.Branch,
		Pushed:             syncResult.Pushed,
		PullRequestURL:     outcome.PullRequestURL,
		ClosedPullRequests: outcome.ClosedPullRequests,
		FailedToClose:      outcome.FailedToClose,
		Command:            outcome.DryRunCommand,
		CompareURL:         outcome.CompareURL,
	}
	if service.dependencies.Transcript != nil {
		report.Commands = service.dependencies.Transcript.Entries()
	}

	service.dependencies.Logger.Info(runCompletedLogMessageConstant, zap.String(actionLogFieldConstant, report.Action))
	return report, nil
}

// PreviewNotes renders the pull request body Execute would use, reading the vendored version
// from the clone as it is. Nothing is fetched, committed or pushed.
func (service *Service) PreviewNotes(executionContext context.Context, options Options) (string, error) {
	normalized, validationError := options.normalize(validationRequirements{})
	if validationError != nil {
		return "", validationError
	}
	if repositoryError := nodesync.EnsureRepository(normalized.NodeDirectory); repositoryError != nil {
		return "", repositoryError
	}

	manifest, packument, resolveError := service.resolveManifest(executionContext, normalized)
	if resolveError != nil {
		return "", resolveError
	}

	previousVersion := service.readPreviousVersion(normalized)
	versions := releasenotes.VersionRange(previousVersion, manifest.Version, packument.PublishedVersions())

	base := BaseDescriptor{Repository: normalized.baseRepository, Remote: normalized.BaseRemote, Branch: normalized.BaseBranch}
	head := NewHeadDescriptor(manifest.Version, gitrepo.Repository{}, "")
	_, body, bodyError := service.composeBody(executionContext, pullRequestTarget(base, head), versions)
	return body, bodyError
}

func (service *Service) resolveManifest(executionContext context.Context, options normalizedOptions) (registry.Manifest, registry.Packument, error) {
	manifest, packument, resolveError := service.dependencies.Registry.ResolveManifest(executionContext, options.PackageName, options.VersionSpec)
	if resolveError != nil {
		return registry.Manifest{}, registry.Packument{}, fmt.Errorf(resolveManifestErrorTemplateConstant, options.PackageName, options.VersionSpec, resolveError)
	}
	service.dependencies.Logger.Info(resolvedLogMessageConstant,
		zap.String(versionLogFieldConstant, manifest.Version),
		zap.String(sourceReferenceLogFieldConstant, manifest.SourceReference),
	)
	return manifest, packument, nil
}

func (service *Service) resolveFork(executionContext context.Context, options normalizedOptions) (gitrepo.Repository, error) {
	var forkRepository gitrepo.Repository
	if len(options.ForkRepository) > 0 {
		parsedRepository, parseError := gitrepo.ParseRepository(options.ForkRepository)
		if parseError != nil {
			return gitrepo.Repository{}, fmt.Errorf(forkParseErrorTemplateConstant, parseError)
		}
		forkRepository = parsedRepository
	} else {
		login, loginError := service.dependencies.GitHub.ResolveAuthenticatedLogin(executionContext)
		if loginError != nil {
			return gitrepo.Repository{}, fmt.Errorf(forkLoginErrorTemplateConstant, loginError)
		}
		forkRepository = gitrepo.Repository{Host: options.baseRepository.Host, Owner: login, Name: options.ForkName}
	}

	if _, metadataError := service.dependencies.GitHub.ResolveRepoMetadata(executionContext, forkRepository.FullName()); metadataError != nil {
		return gitrepo.Repository{}, ForkNotFoundError{Repository: forkRepository.FullName(), Cause: metadataError}
	}
	return forkRepository, nil
}

func (service *Service) composeBody(executionContext context.Context, target pullrequests.Target, versions []string) (pullrequests.Plan, string, error) {
	plan, discoverError := service.dependencies.PullRequests.Discover(executionContext, target)
	if discoverError != nil {
		return pullrequests.Plan{}, "", fmt.Errorf(reconcileErrorTemplateConstant, discoverError)
	}
	body, composeError := service.dependencies.Notes.Compose(executionContext, releasenotes.BodyRequest{
		TargetVersion:          target.TargetVersion,
		Versions:               versions,
		SupersededPullRequests: plan.SupersededNumbers(),
	})
	if composeError != nil {
		return pullrequests.Plan{}, "", fmt.Errorf(composeErrorTemplateConstant, composeError)
	}
	return plan, body, nil
}

func (service *Service) readPreviousVersion(options normalizedOptions) string {
	previousVersion, readError := service.dependencies.VendoredVersionReader(options.NodeDirectory, options.BaseRemote, options.BaseBranch, options.VendoredPath)
	if readError != nil {
		service.dependencies.Logger.Warn(vendoredVersionMissingLogMessageConstant, zap.Error(readError))
		return ""
	}
	service.dependencies.Logger.Info(vendoredVersionLogMessageConstant, zap.String(previousVersionLogFieldConstant, previousVersion))
	return previousVersion
}

func (service *Service) removeTemporaryDirectory(temporaryDirectory string) {
	if removeError := os.RemoveAll(temporaryDirectory); removeError != nil {
		service.dependencies.Logger.Warn(cleanupFailedLogMessageConstant, zap.String(pathLogFieldConstant, temporaryDirectory), zap.Error(removeError))
	}
}
