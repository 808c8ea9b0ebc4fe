// Package flags binds the shared flags of npm-node-sync commands.
package flags

import (
	"github.com/spf13/cobra"
)

// Shared flag names.
const (
	DryRunFlagName        = "dry-run"
	RegistryOnlyFlagName  = "registry-only"
	LocalTestFlagName     = "local-test"
	NodeDirectoryFlagName = "node-dir"

	dryRunFlagUsageConstant        = "Run the local git steps only: no push and no pull request changes"
	registryOnlyFlagUsageConstant  = "Vendor the registry tarball as published, without fixtures"
	localTestFlagUsageConstant     = "Skip the clean working tree check and the release tag checkout"
	nodeDirectoryFlagUsageConstant = "Path to the local Node.js clone"
)

// ModeFlagValues stores the run mode flags.
type ModeFlagValues struct {
	DryRun       bool
	RegistryOnly bool
	LocalTest    bool
}

// BindModeFlags attaches --dry-run, --registry-only and --local-test to command.
func BindModeFlags(command *cobra.Command, defaults ModeFlagValues) *ModeFlagValues {
	values := defaults
	if command == nil {
		return &values
	}
	flagSet := command.Flags()
	flagSet.BoolVar(&values.DryRun, DryRunFlagName, defaults.DryRun, dryRunFlagUsageConstant)
	flagSet.BoolVar(&values.RegistryOnly, RegistryOnlyFlagName, defaults.RegistryOnly, registryOnlyFlagUsageConstant)
	flagSet.BoolVar(&values.LocalTest, LocalTestFlagName, defaults.LocalTest, localTestFlagUsageConstant)
	return &values
}

// BindNodeDirectoryFlag attaches --node-dir to command.
func BindNodeDirectoryFlag(command *cobra.Command, target *string) {
	if command == nil {
		return
	}
	command.Flags().StringVar(target, NodeDirectoryFlagName, "", nodeDirectoryFlagUsageConstant)
}
