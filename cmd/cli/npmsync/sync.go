// Package npmsync exposes the sync and notes commands.
package npmsync

import (
	"github.com/spf13/cobra"

	"github.com/temirov/npm-node-sync/internal/ui"
	"github.com/temirov/npm-node-sync/internal/workflow"
)

const (
	syncCommandUseConstant              = "sync <npm-version-spec> [branch]"
	syncCommandShortDescriptionConstant = "Vendor an npm release into a Node.js clone and open the update pull request"
	syncCommandLongDescriptionConstant  = "sync resolves the npm release, repacks it with test fixtures from the npm working tree in the current directory, commits it to the Node.js clone, force-pushes the branch to your fork and creates or updates the pull request. The optional branch overrides the Node.js base branch. A YAML report is written to standard output."
)

// CommandBuilder assembles the sync command.
type CommandBuilder struct {
	CommandDependencies
}

// Build constructs the sync command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   syncCommandUseConstant,
		Short: syncCommandShortDescriptionConstant,
		Long:  syncCommandLongDescriptionConstant,
		Args:  cobra.RangeArgs(minimumPositionalArgumentCountConstant, maximumPositionalArgumentCountConstant),
	}
	flagValues := bindCommandFlags(command, true)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.run(command, arguments, flagValues)
	}
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string, flagValues *commandFlagValues) error {
	configuration := flagValues.apply(command, builder.configuration())
	logger := resolveLogger(builder.LoggerProvider)

	token, tokenError := loadToken(command)
	if tokenError != nil {
		return tokenError
	}

	workingDirectory, workingDirectoryError := builder.workingDirectory()
	if workingDirectoryError != nil {
		return workingDirectoryError
	}

	transcript := ui.NewCommandTranscript()
	service, serviceError := builder.buildService(command.Context(), logger, configuration, token, transcript)
	if serviceError != nil {
		return serviceError
	}

	report, executionError := service.Execute(command.Context(), buildOptions(configuration, arguments, workingDirectory, token))
	if executionError != nil {
		return executionError
	}
	return workflow.WriteReport(command.OutOrStdout(), report)
}
