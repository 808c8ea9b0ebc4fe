package npmsync

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/npm-node-sync/internal/githubauth"
	"github.com/temirov/npm-node-sync/internal/releasenotes"
	"github.com/temirov/npm-node-sync/internal/ui"
)

const (
	notesCommandUseConstant              = "notes <npm-version-spec> [branch]"
	notesCommandShortDescriptionConstant = "Print the pull request body sync would use"
	notesCommandLongDescriptionConstant  = "notes resolves the npm release and prints the aggregated release notes for every version between the npm vendored on the Node.js base branch and the requested one. Nothing is committed, pushed or opened."
)

// NotesCommandBuilder assembles the notes command.
type NotesCommandBuilder struct {
	CommandDependencies
}

// Build constructs the notes command.
func (builder *NotesCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   notesCommandUseConstant,
		Short: notesCommandShortDescriptionConstant,
		Long:  notesCommandLongDescriptionConstant,
		Args:  cobra.RangeArgs(minimumPositionalArgumentCountConstant, maximumPositionalArgumentCountConstant),
	}
	flagValues := bindCommandFlags(command, false)
	command.RunE = func(command *cobra.Command, arguments []string) error {
		return builder.run(command, arguments, flagValues)
	}
	return command, nil
}

// run tolerates a missing token when notes come from gh, which carries its own authentication.
func (builder *NotesCommandBuilder) run(command *cobra.Command, arguments []string, flagValues *commandFlagValues) error {
	configuration := flagValues.apply(command, builder.configuration())
	logger := resolveLogger(builder.LoggerProvider)

	token, tokenError := loadToken(command)
	if tokenError != nil {
		if !errors.Is(tokenError, githubauth.ErrTokenNotFound) || configuration.NotesSource == releasenotes.SourceGitHubAPI {
			return tokenError
		}
	}

	workingDirectory, workingDirectoryError := builder.workingDirectory()
	if workingDirectoryError != nil {
		return workingDirectoryError
	}

	service, serviceError := builder.buildService(command.Context(), logger, configuration, token, ui.NewCommandTranscript())
	if serviceError != nil {
		return serviceError
	}

	body, previewError := service.PreviewNotes(command.Context(), buildOptions(configuration, arguments, workingDirectory, token))
	if previewError != nil {
		return previewError
	}
	_, writeError := fmt.Fprint(command.OutOrStdout(), body)
	return writeError
}
