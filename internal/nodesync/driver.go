package nodesync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/npm-node-sync/internal/execshell"
	"github.com/temirov/npm-node-sync/internal/tarball"
)

const (
	// DefaultVendoredPath is where Node.js keeps its copy of npm.
	DefaultVendoredPath = "deps/npm"

	gitFetchSubcommandConstant              = "fetch"
	gitCheckoutSubcommandConstant           = "checkout"
	gitResetSubcommandConstant              = "reset"
	gitBranchSubcommandConstant             = "branch"
	gitAddSubcommandConstant                = "add"
	gitCommitSubcommandConstant             = "commit"
	gitRebaseSubcommandConstant             = "rebase"
	gitRemoteSubcommandConstant             = "remote"
	gitPushSubcommandConstant               = "push"
	gitHardFlagConstant                     = "--hard"
	gitForceDeleteFlagConstant              = "-D"
	gitCreateBranchFlagConstant             = "-b"
	gitAllFlagConstant                      = "-A"
	gitMessageFlagConstant                  = "-m"
	gitWhitespaceFixFlagConstant            = "--whitespace=fix"
	gitRemoteAddActionConstant              = "add"
	gitRemoteRemoveActionConstant           = "remove"
	gitForceFlagConstant                    = "--force"
	remoteBranchTemplateConstant            = "%s/%s"
	vendoredDirectoryModeConstant           = 0o755
	loggerNotConfiguredMessageConstant      = "sync driver logger not configured"
	gitExecutorNotConfiguredMessageConstant = "sync driver git executor not configured"
	repositoryNotFoundTemplateConstant      = "local clone %s not found: clone the repository first"
	invalidOptionsTemplateConstant          = "sync option %s: value required"
	stepErrorTemplateConstant               = "%s: %w"
	replaceVendoredErrorTemplateConstant    = "replace %s: %w"
	repositoryPathFieldConstant             = "repository_path"
	baseRemoteFieldConstant                 = "base_remote"
	baseBranchFieldConstant                 = "base_branch"
	headBranchFieldConstant                 = "head_branch"
	tarballPathFieldConstant                = "tarball_path"
	commitMessageFieldConstant              = "commit_message"
	forkRemoteNameFieldConstant             = "fork_remote_name"
	forkRemoteURLFieldConstant              = "fork_remote_url"
	ignoredFailureLogMessageConstant        = "ignoring failed cleanup step"
	dryRunSkipLogMessageConstant            = "dry run: skipping remote configuration and push"
	vendoredReplacedLogMessageConstant      = "replaced vendored npm"
	stepLogFieldConstant                    = "step"
	pathLogFieldConstant                    = "path"
)

// GitExecutor is the subset of execshell.ShellExecutor the driver relies on.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

var (
	// ErrLoggerNotConfigured indicates a nil logger was provided.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrGitExecutorNotConfigured indicates a nil git executor was provided.
	ErrGitExecutorNotConfigured = errors.New(gitExecutorNotConfiguredMessageConstant)
)

// RepositoryNotFoundError reports a missing or non-git local clone.
type RepositoryNotFoundError struct {
	RepositoryPath string
	Cause          error
}

// Error describes the missing clone.
func (notFoundError RepositoryNotFoundError) Error() string {
	return fmt.Sprintf(repositoryNotFoundTemplateConstant, notFoundError.RepositoryPath)
}

// Unwrap exposes the underlying cause.
func (notFoundError RepositoryNotFoundError) Unwrap() error {
	return notFoundError.Cause
}

// InvalidOptionsError reports a missing sync option.
type InvalidOptionsError struct {
	FieldName string
}

// Error describes the missing option.
func (optionsError InvalidOptionsError) Error() string {
	return fmt.Sprintf(invalidOptionsTemplateConstant, optionsError.FieldName)
}

// ServiceDependencies enumerates collaborators required by the driver.
type ServiceDependencies struct {
	Logger      *zap.Logger
	GitExecutor GitExecutor
}

// SyncOptions describes one sync run against a local clone.
type SyncOptions struct {
	RepositoryPath string
	BaseRemote     string
	BaseBranch     string
	HeadBranch     string
	VendoredPath   string
	TarballPath    string
	CommitMessage  string
	ForkRemoteName string
	ForkRemoteURL  string
	DryRun         bool
}

// SyncResult reports what the driver did.
type SyncResult struct {
	Pushed bool
}

// Driver runs the sync steps.
type Driver struct {
	logger      *zap.Logger
	gitExecutor GitExecutor
}

// NewDriver validates dependencies and constructs a Driver.
func NewDriver(dependencies ServiceDependencies) (*Driver, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &Driver{logger: dependencies.Logger, gitExecutor: dependencies.GitExecutor}, nil
}

type syncStep struct {
	name          string
	arguments     []string
	ignoreFailure bool
	perform       func() error
}

// Sync resets the base branch to its upstream, recreates the head branch with the tarball
// contents committed, rebases it and, unless DryRun is set, force-pushes it to the fork remote.
// The first failing step aborts the run.
func (driver *Driver) Sync(executionContext context.Context, options SyncOptions) (SyncResult, error) {
	if validationError := validateSyncOptions(options); validationError != nil {
		return SyncResult{}, validationError
	}
	if openError := EnsureRepository(options.RepositoryPath); openError != nil {
		return SyncResult{}, openError
	}

	vendoredPath := options.VendoredPath
	if len(strings.TrimSpace(vendoredPath)) == 0 {
		vendoredPath = DefaultVendoredPath
	}
	upstreamBranch := fmt.Sprintf(remoteBranchTemplateConstant, options.BaseRemote, options.BaseBranch)

	localSteps := []syncStep{
		{name: "fetch", arguments: []string{gitFetchSubcommandConstant, options.BaseRemote}},
		{name: "checkout base", arguments: []string{gitCheckoutSubcommandConstant, options.BaseBranch}},
		{name: "reset base", arguments: []string{gitResetSubcommandConstant, gitHardFlagConstant, upstreamBranch}},
		{name: "delete head branch", arguments: []string{gitBranchSubcommandConstant, gitForceDeleteFlagConstant, options.HeadBranch}, ignoreFailure: true},
		{name: "create head branch", arguments: []string{gitCheckoutSubcommandConstant, gitCreateBranchFlagConstant, options.HeadBranch}},
		{name: "replace vendored directory", perform: func() error {
			return driver.replaceVendoredDirectory(filepath.Join(options.RepositoryPath, filepath.FromSlash(vendoredPath)), options.TarballPath)
		}},
		{name: "stage", arguments: []string{gitAddSubcommandConstant, gitAllFlagConstant, vendoredPath}},
		{name: "commit", arguments: []string{gitCommitSubcommandConstant, gitMessageFlagConstant, options.CommitMessage}},
		{name: "rebase", arguments: []string{gitRebaseSubcommandConstant, gitWhitespaceFixFlagConstant, options.BaseBranch}},
	}
	if stepError := driver.runSteps(executionContext, options.RepositoryPath, localSteps); stepError != nil {
		return SyncResult{}, stepError
	}

	if options.DryRun {
		driver.logger.Info(dryRunSkipLogMessageConstant)
		return SyncResult{}, nil
	}

	remoteSteps := []syncStep{
		{name: "remove fork remote", arguments: []string{gitRemoteSubcommandConstant, gitRemoteRemoveActionConstant, options.ForkRemoteName}, ignoreFailure: true},
		{name: "add fork remote", arguments: []string{gitRemoteSubcommandConstant, gitRemoteAddActionConstant, options.ForkRemoteName, options.ForkRemoteURL}},
		{name: "push", arguments: []string{gitPushSubcommandConstant, options.ForkRemoteName, options.HeadBranch, gitForceFlagConstant}},
	}
	if stepError := driver.runSteps(executionContext, options.RepositoryPath, remoteSteps); stepError != nil {
		return SyncResult{}, stepError
	}
	return SyncResult{Pushed: true}, nil
}

func (driver *Driver) runSteps(executionContext context.Context, repositoryPath string, steps []syncStep) error {
	for _, step := range steps {
		var stepError error
		if step.perform != nil {
			stepError = step.perform()
		} else {
			_, stepError = driver.gitExecutor.ExecuteGit(executionContext, execshell.CommandDetails{
				Arguments:        step.arguments,
				WorkingDirectory: repositoryPath,
			})
		}
		if stepError == nil {
			continue
		}
		if step.ignoreFailure {
			driver.logger.Debug(ignoredFailureLogMessageConstant, zap.String(stepLogFieldConstant, step.name), zap.Error(stepError))
			continue
		}
		return fmt.Errorf(stepErrorTemplateConstant, step.name, stepError)
	}
	return nil
}

func (driver *Driver) replaceVendoredDirectory(vendoredDirectory string, tarballPath string) error {
	if removeError := os.RemoveAll(vendoredDirectory); removeError != nil {
		return fmt.Errorf(replaceVendoredErrorTemplateConstant, vendoredDirectory, removeError)
	}
	if mkdirError := os.MkdirAll(vendoredDirectory, vendoredDirectoryModeConstant); mkdirError != nil {
		return fmt.Errorf(replaceVendoredErrorTemplateConstant, vendoredDirectory, mkdirError)
	}
	if extractError := tarball.Extract(tarballPath, vendoredDirectory, 1); extractError != nil {
		return fmt.Errorf(replaceVendoredErrorTemplateConstant, vendoredDirectory, extractError)
	}
	driver.logger.Info(vendoredReplacedLogMessageConstant, zap.String(pathLogFieldConstant, vendoredDirectory))
	return nil
}

func validateSyncOptions(options SyncOptions) error {
	requiredValues := []struct {
		fieldName string
		value     string
		required  bool
	}{
		{fieldName: repositoryPathFieldConstant, value: options.RepositoryPath, required: true},
		{fieldName: baseRemoteFieldConstant, value: options.BaseRemote, required: true},
		{fieldName: baseBranchFieldConstant, value: options.BaseBranch, required: true},
		{fieldName: headBranchFieldConstant, value: options.HeadBranch, required: true},
		{fieldName: tarballPathFieldConstant, value: options.TarballPath, required: true},
		{fieldName: commitMessageFieldConstant, value: options.CommitMessage, required: true},
		{fieldName: forkRemoteNameFieldConstant, value: options.ForkRemoteName, required: !options.DryRun},
		{fieldName: forkRemoteURLFieldConstant, value: options.ForkRemoteURL, required: !options.DryRun},
	}
	for _, requiredValue := range requiredValues {
		if requiredValue.required && len(strings.TrimSpace(requiredValue.value)) == 0 {
			return InvalidOptionsError{FieldName: requiredValue.fieldName}
		}
	}
	return nil
}
