package npmsync

import (
	"strings"
	"time"

	"github.com/temirov/npm-node-sync/internal/nodesync"
	"github.com/temirov/npm-node-sync/internal/registry"
	"github.com/temirov/npm-node-sync/internal/releasenotes"
	"github.com/temirov/npm-node-sync/internal/tarball"
	"github.com/temirov/npm-node-sync/internal/workflow"
)

const (
	packageConfigurationKeyConstant          = "package"
	baseRepositoryConfigurationKeyConstant   = "base_repository"
	baseRemoteConfigurationKeyConstant       = "base_remote"
	baseBranchConfigurationKeyConstant       = "base_branch"
	forkRepositoryConfigurationKeyConstant   = "fork_repository"
	forkNameConfigurationKeyConstant         = "fork_name"
	nodeDirectoryConfigurationKeyConstant    = "node_directory"
	vendoredPathConfigurationKeyConstant     = "vendored_path"
	fixturePathsConfigurationKeyConstant     = "fixture_paths"
	notesSourceConfigurationKeyConstant      = "notes_source"
	notesRepositoryConfigurationKeyConstant  = "notes_repository"
	notesConcurrencyConfigurationKeyConstant = "notes_concurrency"
	gitHubAPIURLConfigurationKeyConstant     = "github_api_url"
	registryURLConfigurationKeyConstant      = "registry_url"
	registryTimeoutConfigurationKeyConstant  = "registry_timeout"
	dryRunConfigurationKeyConstant           = "dry_run"
	registryOnlyConfigurationKeyConstant     = "registry_only"
	localTestConfigurationKeyConstant        = "local_test"
	configurationKeySeparatorConstant        = "."

	// DefaultNotesRepository hosts the npm releases whose notes are aggregated.
	DefaultNotesRepository = "npm/cli"
	// DefaultRegistryTimeout bounds every registry request.
	DefaultRegistryTimeout = 2 * time.Minute
)

// CommandConfiguration captures the tools.sync configuration section.
type CommandConfiguration struct {
	PackageName      string        `mapstructure:"package"`
	BaseRepository   string        `mapstructure:"base_repository"`
	BaseRemote       string        `mapstructure:"base_remote"`
	BaseBranch       string        `mapstructure:"base_branch"`
	ForkRepository   string        `mapstructure:"fork_repository"`
	ForkName         string        `mapstructure:"fork_name"`
	NodeDirectory    string        `mapstructure:"node_directory"`
	VendoredPath     string        `mapstructure:"vendored_path"`
	FixturePaths     []string      `mapstructure:"fixture_paths"`
	NotesSource      string        `mapstructure:"notes_source"`
	NotesRepository  string        `mapstructure:"notes_repository"`
	NotesConcurrency int           `mapstructure:"notes_concurrency"`
	GitHubAPIURL     string        `mapstructure:"github_api_url"`
	RegistryURL      string        `mapstructure:"registry_url"`
	RegistryTimeout  time.Duration `mapstructure:"registry_timeout"`
	DryRun           bool          `mapstructure:"dry_run"`
	RegistryOnly     bool          `mapstructure:"registry_only"`
	LocalTest        bool          `mapstructure:"local_test"`
}

// DefaultCommandConfiguration provides the built-in sync settings.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		PackageName:      workflow.DefaultPackageName,
		BaseRepository:   workflow.DefaultBaseRepo,
		BaseRemote:       workflow.DefaultBaseRemote,
		BaseBranch:       workflow.DefaultBaseBranch,
		ForkName:         workflow.DefaultForkName,
		NodeDirectory:    workflow.DefaultNodeDirectory,
		VendoredPath:     nodesync.DefaultVendoredPath,
		FixturePaths:     append([]string{}, tarball.DefaultFixturePaths...),
		NotesSource:      releasenotes.SourceGitHubCLI,
		NotesRepository:  DefaultNotesRepository,
		NotesConcurrency: releasenotes.DefaultConcurrency,
		RegistryURL:      registry.DefaultBaseURL,
		RegistryTimeout:  DefaultRegistryTimeout,
	}
}

// DefaultConfigurationValues returns the defaults keyed under prefix for the configuration loader.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	keyPrefix := strings.TrimSpace(prefix)
	if len(keyPrefix) > 0 {
		keyPrefix += configurationKeySeparatorConstant
	}
	return map[string]any{
		keyPrefix + packageConfigurationKeyConstant:          defaults.PackageName,
		keyPrefix + baseRepositoryConfigurationKeyConstant:   defaults.BaseRepository,
		keyPrefix + baseRemoteConfigurationKeyConstant:       defaults.BaseRemote,
		keyPrefix + baseBranchConfigurationKeyConstant:       defaults.BaseBranch,
		keyPrefix + forkRepositoryConfigurationKeyConstant:   defaults.ForkRepository,
		keyPrefix + forkNameConfigurationKeyConstant:         defaults.ForkName,
		keyPrefix + nodeDirectoryConfigurationKeyConstant:    defaults.NodeDirectory,
		keyPrefix + vendoredPathConfigurationKeyConstant:     defaults.VendoredPath,
		keyPrefix + fixturePathsConfigurationKeyConstant:     defaults.FixturePaths,
		keyPrefix + notesSourceConfigurationKeyConstant:      defaults.NotesSource,
		keyPrefix + notesRepositoryConfigurationKeyConstant:  defaults.NotesRepository,
		keyPrefix + notesConcurrencyConfigurationKeyConstant: defaults.NotesConcurrency,
		keyPrefix + gitHubAPIURLConfigurationKeyConstant:     defaults.GitHubAPIURL,
		keyPrefix + registryURLConfigurationKeyConstant:      defaults.RegistryURL,
		keyPrefix + registryTimeoutConfigurationKeyConstant:  defaults.RegistryTimeout,
		keyPrefix + dryRunConfigurationKeyConstant:           defaults.DryRun,
		keyPrefix + registryOnlyConfigurationKeyConstant:     defaults.RegistryOnly,
		keyPrefix + localTestConfigurationKeyConstant:        defaults.LocalTest,
	}
}

// sanitize trims values and restores defaults for blank or non-positive settings.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration
	sanitized.PackageName = trimmedOrDefault(configuration.PackageName, defaults.PackageName)
	sanitized.BaseRepository = trimmedOrDefault(configuration.BaseRepository, defaults.BaseRepository)
	sanitized.BaseRemote = trimmedOrDefault(configuration.BaseRemote, defaults.BaseRemote)
	sanitized.BaseBranch = trimmedOrDefault(configuration.BaseBranch, defaults.BaseBranch)
	sanitized.ForkRepository = strings.TrimSpace(configuration.ForkRepository)
	sanitized.ForkName = trimmedOrDefault(configuration.ForkName, defaults.ForkName)
	sanitized.NodeDirectory = trimmedOrDefault(configuration.NodeDirectory, defaults.NodeDirectory)
	sanitized.VendoredPath = trimmedOrDefault(configuration.VendoredPath, defaults.VendoredPath)
	sanitized.FixturePaths = sanitizePaths(configuration.FixturePaths)
	sanitized.NotesSource = strings.ToLower(trimmedOrDefault(configuration.NotesSource, defaults.NotesSource))
	sanitized.NotesRepository = trimmedOrDefault(configuration.NotesRepository, defaults.NotesRepository)
	if sanitized.NotesConcurrency <= 0 {
		sanitized.NotesConcurrency = defaults.NotesConcurrency
	}
	sanitized.GitHubAPIURL = strings.TrimSpace(configuration.GitHubAPIURL)
	sanitized.RegistryURL = trimmedOrDefault(configuration.RegistryURL, defaults.RegistryURL)
	if sanitized.RegistryTimeout <= 0 {
		sanitized.RegistryTimeout = defaults.RegistryTimeout
	}
	return sanitized
}

func trimmedOrDefault(value string, fallback string) string {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return fallback
	}
	return trimmedValue
}

func sanitizePaths(raw []string) []string {
	trimmed := make([]string, 0, len(raw))
	for _, candidate := range raw {
		value := strings.TrimSpace(candidate)
		if len(value) == 0 {
			continue
		}
		trimmed = append(trimmed, value)
	}
	return trimmed
}
