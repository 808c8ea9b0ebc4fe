package workflow

import (
	"fmt"
	"strings"

	"github.com/temirov/npm-node-sync/internal/gitrepo"
	"github.com/temirov/npm-node-sync/internal/nodesync"
)

// Defaults applied to blank options.
const (
	DefaultPackageName   = "npm"
	DefaultBaseBranch    = "main"
	DefaultBaseRemote    = "origin"
	DefaultBaseRepo      = "nodejs/node"
	DefaultForkName      = "node"
	DefaultNodeDirectory = "node"
)

const (
	versionSpecFieldNameConstant    = "version_spec"
	tokenFieldNameConstant          = "token"
	workingTreeFieldNameConstant    = "working_tree"
	baseRepositoryFieldNameConstant = "base_repository"
	requiredValueMessageConstant    = "value required"
	invalidInputTemplateConstant    = "%s: %s"
)

// InvalidInputError reports a missing or malformed option.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid option.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputTemplateConstant, inputError.FieldName, inputError.Message)
}

// Options configure one run.
type Options struct {
	PackageName    string
	VersionSpec    string
	BaseRepository string
	BaseRemote     string
	BaseBranch     string
	// ForkRepository is owner/name of the push target. When blank the fork is
	// <authenticated login>/<ForkName>.
	ForkRepository string
	ForkName       string
	NodeDirectory  string
	VendoredPath   string
	WorkingTree    string
	FixturePaths   []string
	Token          string
	TemporaryRoot  string
	DryRun         bool
	RegistryOnly   bool
	LocalTest      bool
}

type normalizedOptions struct {
	Options
	baseRepository gitrepo.Repository
}

type validationRequirements struct {
	token       bool
	workingTree bool
}

func (options Options) normalize(requirements validationRequirements) (normalizedOptions, error) {
	normalized := options
	normalized.PackageName = valueOrDefault(options.PackageName, DefaultPackageName)
	normalized.VersionSpec = strings.TrimSpace(options.VersionSpec)
	normalized.BaseRepository = valueOrDefault(options.BaseRepository, DefaultBaseRepo)
	normalized.BaseRemote = valueOrDefault(options.BaseRemote, DefaultBaseRemote)
	normalized.BaseBranch = valueOrDefault(options.BaseBranch, DefaultBaseBranch)
	normalized.ForkRepository = strings.TrimSpace(options.ForkRepository)
	normalized.ForkName = valueOrDefault(options.ForkName, DefaultForkName)
	normalized.NodeDirectory = valueOrDefault(options.NodeDirectory, DefaultNodeDirectory)
	normalized.VendoredPath = valueOrDefault(options.VendoredPath, nodesync.DefaultVendoredPath)
	normalized.WorkingTree = strings.TrimSpace(options.WorkingTree)
	normalized.Token = strings.TrimSpace(options.Token)

	if len(normalized.VersionSpec) == 0 {
		return normalizedOptions{}, InvalidInputError{FieldName: versionSpecFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if requirements.token && len(normalized.Token) == 0 {
		return normalizedOptions{}, InvalidInputError{FieldName: tokenFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if requirements.workingTree && !normalized.LocalTest && len(normalized.WorkingTree) == 0 {
		return normalizedOptions{}, InvalidInputError{FieldName: workingTreeFieldNameConstant, Message: requiredValueMessageConstant}
	}

	baseRepository, parseError := gitrepo.ParseRepository(normalized.BaseRepository)
	if parseError != nil {
		return normalizedOptions{}, InvalidInputError{FieldName: baseRepositoryFieldNameConstant, Message: parseError.Error()}
	}

	return normalizedOptions{Options: normalized, baseRepository: baseRepository}, nil
}

func valueOrDefault(value string, defaultValue string) string {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return defaultValue
	}
	return trimmedValue
}
