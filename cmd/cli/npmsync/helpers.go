package npmsync

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/npm-node-sync/internal/execshell"
	"github.com/temirov/npm-node-sync/internal/githubauth"
	"github.com/temirov/npm-node-sync/internal/githubcli"
	"github.com/temirov/npm-node-sync/internal/gitrepo"
	"github.com/temirov/npm-node-sync/internal/nodesync"
	"github.com/temirov/npm-node-sync/internal/pullrequests"
	"github.com/temirov/npm-node-sync/internal/registry"
	"github.com/temirov/npm-node-sync/internal/releasenotes"
	"github.com/temirov/npm-node-sync/internal/tarball"
	"github.com/temirov/npm-node-sync/internal/ui"
	"github.com/temirov/npm-node-sync/internal/utils"
	flagutils "github.com/temirov/npm-node-sync/internal/utils/flags"
	pathutils "github.com/temirov/npm-node-sync/internal/utils/path"
	"github.com/temirov/npm-node-sync/internal/workflow"
)

const (
	notesSourceFlagNameConstant            = "notes-source"
	notesSourceFlagUsageConstant           = "Where release notes are read from"
	workingDirectoryErrorTemplateConstant  = "unable to determine working directory: %w"
	executorErrorTemplateConstant          = "unable to construct command executor: %w"
	gitHubClientErrorTemplateConstant      = "unable to construct GitHub client: %w"
	registryClientErrorTemplateConstant    = "unable to construct registry client: %w"
	assemblerErrorTemplateConstant         = "unable to construct tarball assembler: %w"
	driverErrorTemplateConstant            = "unable to construct sync driver: %w"
	reconcilerErrorTemplateConstant        = "unable to construct pull request reconciler: %w"
	noteSourceErrorTemplateConstant        = "unable to construct release note source: %w"
	notesRepositoryErrorTemplateConstant   = "invalid notes repository: %w"
	aggregatorErrorTemplateConstant        = "unable to construct release note aggregator: %w"
	serviceErrorTemplateConstant           = "unable to construct sync service: %w"
	positionalVersionSpecIndexConstant     = 0
	positionalBaseBranchIndexConstant      = 1
	minimumPositionalArgumentCountConstant = 1
	maximumPositionalArgumentCountConstant = 2
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// WorkingDirectoryProvider reports the npm working tree relative paths resolve against.
type WorkingDirectoryProvider func() (string, error)

// CommandDependencies are shared by the sync and notes command builders. Nil collaborators fall
// back to the process environment: the OS command runner, an http.Client bounded by the
// configured registry timeout, and os.Getwd.
type CommandDependencies struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	CommandRunner                execshell.CommandRunner
	RegistryHTTPClient           registry.HTTPClient
	WorkingDirectoryProvider     WorkingDirectoryProvider
}

type commandFlagValues struct {
	modes         *flagutils.ModeFlagValues
	nodeDirectory string
	notesSource   string
}

func bindCommandFlags(command *cobra.Command, includeModes bool) *commandFlagValues {
	values := &commandFlagValues{}
	if includeModes {
		values.modes = flagutils.BindModeFlags(command, flagutils.ModeFlagValues{})
	}
	flagutils.BindNodeDirectoryFlag(command, &values.nodeDirectory)
	flagutils.AddChoiceFlag(
		command.Flags(),
		&values.notesSource,
		notesSourceFlagNameConstant,
		releasenotes.SourceGitHubCLI,
		[]string{releasenotes.SourceGitHubCLI, releasenotes.SourceGitHubAPI},
		notesSourceFlagUsageConstant,
	)
	return values
}

// apply overlays explicitly set flags on configuration.
func (values *commandFlagValues) apply(command *cobra.Command, configuration CommandConfiguration) CommandConfiguration {
	flagSet := command.Flags()
	if values.modes != nil {
		if flagSet.Changed(flagutils.DryRunFlagName) {
			configuration.DryRun = values.modes.DryRun
		}
		if flagSet.Changed(flagutils.RegistryOnlyFlagName) {
			configuration.RegistryOnly = values.modes.RegistryOnly
		}
		if flagSet.Changed(flagutils.LocalTestFlagName) {
			configuration.LocalTest = values.modes.LocalTest
		}
	}
	if flagSet.Changed(flagutils.NodeDirectoryFlagName) {
		configuration.NodeDirectory = values.nodeDirectory
	}
	if flagSet.Changed(notesSourceFlagNameConstant) {
		configuration.NotesSource = values.notesSource
	}
	return configuration.sanitize()
}

func (dependencies CommandDependencies) configuration() CommandConfiguration {
	if dependencies.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return dependencies.ConfigurationProvider()
}

func (dependencies CommandDependencies) humanReadableLogging() bool {
	if dependencies.HumanReadableLoggingProvider == nil {
		return false
	}
	return dependencies.HumanReadableLoggingProvider()
}

func (dependencies CommandDependencies) workingDirectory() (string, error) {
	provider := dependencies.WorkingDirectoryProvider
	if provider == nil {
		provider = os.Getwd
	}
	workingDirectory, workingDirectoryError := provider()
	if workingDirectoryError != nil {
		return "", fmt.Errorf(workingDirectoryErrorTemplateConstant, workingDirectoryError)
	}
	return workingDirectory, nil
}

func (dependencies CommandDependencies) registryHTTPClient(timeout time.Duration) registry.HTTPClient {
	if dependencies.RegistryHTTPClient != nil {
		return dependencies.RegistryHTTPClient
	}
	return &http.Client{Timeout: timeout}
}

func (dependencies CommandDependencies) commandRunner() execshell.CommandRunner {
	if dependencies.CommandRunner != nil {
		return dependencies.CommandRunner
	}
	return execshell.NewOSCommandRunner()
}

// loadToken reads the GitHub token through the environment lookuper carried by the command context.
func loadToken(command *cobra.Command) (string, error) {
	executionContext := command.Context()
	return githubauth.LoadToken(executionContext, utils.NewCommandContextAccessor().EnvironmentLookuper(executionContext))
}

// buildService wires the executor, GitHub, registry, tarball, sync, pull request and release note
// collaborators into a workflow service. Every command runs through one executor so the token
// is redacted everywhere and the transcript sees every command line.
func (dependencies CommandDependencies) buildService(executionContext context.Context, logger *zap.Logger, configuration CommandConfiguration, token string, transcript *ui.CommandTranscript) (*workflow.Service, error) {
	executor, executorError := execshell.NewShellExecutor(
		logger,
		dependencies.commandRunner(),
		execshell.WithHumanReadableLogging(dependencies.humanReadableLogging()),
		execshell.WithSecretRedactor(execshell.NewSecretRedactor(token)),
		execshell.WithCommandEventObserver(transcript),
	)
	if executorError != nil {
		return nil, fmt.Errorf(executorErrorTemplateConstant, executorError)
	}

	githubClient, githubClientError := githubcli.NewClient(executor)
	if githubClientError != nil {
		return nil, fmt.Errorf(gitHubClientErrorTemplateConstant, githubClientError)
	}

	registryClient, registryClientError := registry.NewClient(
		logger,
		dependencies.registryHTTPClient(configuration.RegistryTimeout),
		registry.ServiceConfiguration{BaseURL: configuration.RegistryURL},
	)
	if registryClientError != nil {
		return nil, fmt.Errorf(registryClientErrorTemplateConstant, registryClientError)
	}

	assembler, assemblerError := tarball.NewAssembler(tarball.ServiceDependencies{Logger: logger, GitExecutor: executor, Downloader: registryClient})
	if assemblerError != nil {
		return nil, fmt.Errorf(assemblerErrorTemplateConstant, assemblerError)
	}

	driver, driverError := nodesync.NewDriver(nodesync.ServiceDependencies{Logger: logger, GitExecutor: executor})
	if driverError != nil {
		return nil, fmt.Errorf(driverErrorTemplateConstant, driverError)
	}

	reconciler, reconcilerError := pullrequests.NewReconciler(pullrequests.ServiceDependencies{Logger: logger, GitHub: githubClient})
	if reconcilerError != nil {
		return nil, fmt.Errorf(reconcilerErrorTemplateConstant, reconcilerError)
	}

	notesRepository, notesRepositoryError := gitrepo.ParseRepository(configuration.NotesRepository)
	if notesRepositoryError != nil {
		return nil, fmt.Errorf(notesRepositoryErrorTemplateConstant, notesRepositoryError)
	}

	noteSource, noteSourceError := buildNoteSource(executionContext, configuration, notesRepository, githubClient, token)
	if noteSourceError != nil {
		return nil, fmt.Errorf(noteSourceErrorTemplateConstant, noteSourceError)
	}

	aggregator, aggregatorError := releasenotes.NewAggregator(
		releasenotes.ServiceDependencies{Logger: logger, Source: noteSource},
		releasenotes.AggregatorOptions{NotesRepository: notesRepository, Concurrency: configuration.NotesConcurrency},
	)
	if aggregatorError != nil {
		return nil, fmt.Errorf(aggregatorErrorTemplateConstant, aggregatorError)
	}

	service, serviceError := workflow.NewService(workflow.Dependencies{
		Logger:       logger,
		Registry:     registryClient,
		Assembler:    assembler,
		Syncer:       driver,
		GitHub:       githubClient,
		PullRequests: reconciler,
		Notes:        aggregator,
		Transcript:   transcript,
	})
	if serviceError != nil {
		return nil, fmt.Errorf(serviceErrorTemplateConstant, serviceError)
	}
	return service, nil
}

func buildNoteSource(executionContext context.Context, configuration CommandConfiguration, notesRepository gitrepo.Repository, githubClient *githubcli.Client, token string) (releasenotes.NoteSource, error) {
	source, sourceError := releasenotes.ValidateSource(configuration.NotesSource)
	if sourceError != nil {
		return nil, sourceError
	}
	if source == releasenotes.SourceGitHubAPI {
		return releasenotes.NewGitHubAPISource(githubauth.NewAuthenticatedHTTPClient(executionContext, token), notesRepository, configuration.GitHubAPIURL)
	}
	return releasenotes.NewGitHubCLISource(githubClient, notesRepository)
}

// buildOptions maps configuration and positional arguments onto workflow options. Relative
// directories resolve against the working directory, which is also the npm working tree.
func buildOptions(configuration CommandConfiguration, arguments []string, workingDirectory string, token string) workflow.Options {
	options := workflow.Options{
		PackageName:    configuration.PackageName,
		BaseRepository: configuration.BaseRepository,
		BaseRemote:     configuration.BaseRemote,
		BaseBranch:     configuration.BaseBranch,
		ForkRepository: configuration.ForkRepository,
		ForkName:       configuration.ForkName,
		NodeDirectory:  pathutils.ResolveDirectory(configuration.NodeDirectory, workingDirectory),
		VendoredPath:   configuration.VendoredPath,
		WorkingTree:    workingDirectory,
		FixturePaths:   configuration.FixturePaths,
		Token:          token,
		DryRun:         configuration.DryRun,
		RegistryOnly:   configuration.RegistryOnly,
		LocalTest:      configuration.LocalTest,
	}
	if len(arguments) > positionalVersionSpecIndexConstant {
		options.VersionSpec = strings.TrimSpace(arguments[positionalVersionSpecIndexConstant])
	}
	if len(arguments) > positionalBaseBranchIndexConstant {
		if baseBranch := strings.TrimSpace(arguments[positionalBaseBranchIndexConstant]); len(baseBranch) > 0 {
			options.BaseBranch = baseBranch
		}
	}
	return options
}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
