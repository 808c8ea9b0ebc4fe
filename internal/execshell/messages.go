package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	commandLabelTemplateConstant           = "%s%s"
	workingDirectorySuffixTemplateConstant = " (in %s)"
	commandArgumentsJoinSeparatorConstant  = " "
	standardErrorSuffixTemplateConstant    = ": %s"
	unknownFailureMessageConstant          = "unknown error"
	emptyStringConstant                    = ""
	defaultWorkingDirectoryLabelConstant   = "current directory"
	fallbackUnknownValueLabelConstant      = "unknown"
	flagPrefixConstant                     = "-"
)

const (
	gitFetchSubcommandNameConstant       = "fetch"
	gitCheckoutSubcommandNameConstant    = "checkout"
	gitResetSubcommandNameConstant       = "reset"
	gitBranchSubcommandNameConstant      = "branch"
	gitAddSubcommandNameConstant         = "add"
	gitCommitSubcommandNameConstant      = "commit"
	gitRebaseSubcommandNameConstant      = "rebase"
	gitRemoteSubcommandNameConstant      = "remote"
	gitPushSubcommandNameConstant        = "push"
	gitStatusSubcommandNameConstant      = "status"
	gitCreateBranchFlagConstant          = "-b"
	gitMessageFlagConstant               = "-m"
	gitRemoteAddActionConstant           = "add"
	gitRemoteRemoveActionConstant        = "remove"
	gitRemoteRemoveShortActionConstant   = "rm"
	githubPullRequestSubcommandConstant  = "pr"
	githubReleaseSubcommandConstant      = "release"
	githubRepoSubcommandConstant         = "repo"
	githubListActionConstant             = "list"
	githubCreateActionConstant           = "create"
	githubEditActionConstant             = "edit"
	githubCloseActionConstant            = "close"
	githubViewActionConstant             = "view"
	githubRepoFlagConstant               = "--repo"
	githubHeadFlagConstant               = "--head"
	githubCurrentRepositoryLabelConstant = "current repository"
)

// stageTemplates holds one format string per lifecycle stage. Failure templates receive the
// subject values followed by exit code and stderr suffix; execution failure templates receive
// the subject values followed by the failure description.
type stageTemplates struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

var (
	genericTemplates = stageTemplates{
		start:            "Running %s",
		success:          "Completed %s",
		failure:          "%s failed with exit code %d%s",
		executionFailure: "%s failed: %s",
	}
	gitFetchTemplates = stageTemplates{
		start:            "Fetching from %s in %s",
		success:          "Fetched from %s in %s",
		failure:          "Failed to fetch from %s in %s (exit code %d%s)",
		executionFailure: "Unable to fetch from %s in %s: %s",
	}
	gitCheckoutTemplates = stageTemplates{
		start:            "Switching %s to %s",
		success:          "%s now on %s",
		failure:          "Failed to switch %s to %s (exit code %d%s)",
		executionFailure: "Unable to switch %s to %s: %s",
	}
	gitCheckoutNewBranchTemplates = stageTemplates{
		start:            "Creating and switching to branch %s in %s",
		success:          "Created and switched to branch %s in %s",
		failure:          "Failed to create branch %s in %s (exit code %d%s)",
		executionFailure: "Unable to create branch %s in %s: %s",
	}
	gitResetTemplates = stageTemplates{
		start:            "Resetting %s to %s",
		success:          "Reset %s to %s",
		failure:          "Failed to reset %s to %s (exit code %d%s)",
		executionFailure: "Unable to reset %s to %s: %s",
	}
	gitBranchDeletionTemplates = stageTemplates{
		start:            "Removing local branch %s in %s",
		success:          "Removed local branch %s in %s",
		failure:          "Could not remove local branch %s in %s (exit code %d%s)",
		executionFailure: "Unable to remove local branch %s in %s: %s",
	}
	gitAddTemplates = stageTemplates{
		start:            "Staging %s in %s",
		success:          "Staged %s in %s",
		failure:          "Failed to stage %s in %s (exit code %d%s)",
		executionFailure: "Unable to stage %s in %s: %s",
	}
	gitCommitTemplates = stageTemplates{
		start:            "Creating commit %q in %s",
		success:          "Created commit %q in %s",
		failure:          "Failed to create commit %q in %s (exit code %d%s)",
		executionFailure: "Unable to create commit %q in %s: %s",
	}
	gitRebaseTemplates = stageTemplates{
		start:            "Rebasing onto %s in %s",
		success:          "Rebased onto %s in %s",
		failure:          "Failed to rebase onto %s in %s (exit code %d%s)",
		executionFailure: "Unable to rebase onto %s in %s: %s",
	}
	gitRemoteAddTemplates = stageTemplates{
		start:            "Adding remote %s in %s",
		success:          "Added remote %s in %s",
		failure:          "Failed to add remote %s in %s (exit code %d%s)",
		executionFailure: "Unable to add remote %s in %s: %s",
	}
	gitRemoteRemoveTemplates = stageTemplates{
		start:            "Removing remote %s in %s",
		success:          "Removed remote %s in %s",
		failure:          "Could not remove remote %s in %s (exit code %d%s)",
		executionFailure: "Unable to remove remote %s in %s: %s",
	}
	gitPushTemplates = stageTemplates{
		start:            "Pushing %s to %s from %s",
		success:          "Pushed %s to %s from %s",
		failure:          "Failed to push %s to %s from %s (exit code %d%s)",
		executionFailure: "Unable to push %s to %s from %s: %s",
	}
	gitStatusTemplates = stageTemplates{
		start:            "Reviewing working tree status in %s",
		success:          "Collected working tree status for %s",
		failure:          "Failed to review working tree status in %s (exit code %d%s)",
		executionFailure: "Unable to review working tree status in %s: %s",
	}
	githubPullRequestListTemplates = stageTemplates{
		start:            "Listing pull requests in %s",
		success:          "Listed pull requests in %s",
		failure:          "Failed to list pull requests in %s (exit code %d%s)",
		executionFailure: "Unable to list pull requests in %s: %s",
	}
	githubPullRequestCreateTemplates = stageTemplates{
		start:            "Opening pull request from %s in %s",
		success:          "Opened pull request from %s in %s",
		failure:          "Failed to open pull request from %s in %s (exit code %d%s)",
		executionFailure: "Unable to open pull request from %s in %s: %s",
	}
	githubPullRequestEditTemplates = stageTemplates{
		start:            "Updating pull request #%s in %s",
		success:          "Updated pull request #%s in %s",
		failure:          "Failed to update pull request #%s in %s (exit code %d%s)",
		executionFailure: "Unable to update pull request #%s in %s: %s",
	}
	githubPullRequestCloseTemplates = stageTemplates{
		start:            "Closing pull request #%s in %s",
		success:          "Closed pull request #%s in %s",
		failure:          "Failed to close pull request #%s in %s (exit code %d%s)",
		executionFailure: "Unable to close pull request #%s in %s: %s",
	}
	githubReleaseViewTemplates = stageTemplates{
		start:            "Fetching release notes for %s from %s",
		success:          "Fetched release notes for %s from %s",
		failure:          "Failed to fetch release notes for %s from %s (exit code %d%s)",
		executionFailure: "Unable to fetch release notes for %s from %s: %s",
	}
	githubRepoViewTemplates = stageTemplates{
		start:            "Looking up repository %s",
		success:          "Found repository %s",
		failure:          "Failed to look up repository %s (exit code %d%s)",
		executionFailure: "Unable to look up repository %s: %s",
	}
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if len(command.Details.Arguments) == 0 {
		return formatter.render(genericTemplates, result, failure, stage, formatter.formatCommandLabel(command))
	}
	switch command.Name {
	case CommandGit:
		return formatter.describeGitMessage(command, result, failure, stage)
	case CommandGitHub:
		return formatter.describeGitHubMessage(command, result, failure, stage)
	default:
		return formatter.render(genericTemplates, result, failure, stage, formatter.formatCommandLabel(command))
	}
}

func (formatter CommandMessageFormatter) describeGitMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	workingDirectory := formatter.describeWorkingDirectory(command)
	operands := nonFlagArguments(arguments[1:])

	switch strings.TrimSpace(arguments[0]) {
	case gitFetchSubcommandNameConstant:
		return formatter.render(gitFetchTemplates, result, failure, stage, formatter.ensureValue(firstOrEmpty(operands)), workingDirectory)
	case gitCheckoutSubcommandNameConstant:
		if newBranch := findFlagValue(arguments, gitCreateBranchFlagConstant); len(newBranch) > 0 {
			return formatter.render(gitCheckoutNewBranchTemplates, result, failure, stage, newBranch, workingDirectory)
		}
		return formatter.render(gitCheckoutTemplates, result, failure, stage, workingDirectory, formatter.ensureValue(firstOrEmpty(operands)))
	case gitResetSubcommandNameConstant:
		return formatter.render(gitResetTemplates, result, failure, stage, workingDirectory, formatter.ensureValue(lastOrEmpty(operands)))
	case gitBranchSubcommandNameConstant:
		return formatter.render(gitBranchDeletionTemplates, result, failure, stage, formatter.ensureValue(lastOrEmpty(operands)), workingDirectory)
	case gitAddSubcommandNameConstant:
		return formatter.render(gitAddTemplates, result, failure, stage, formatter.ensureValue(strings.Join(operands, ", ")), workingDirectory)
	case gitCommitSubcommandNameConstant:
		return formatter.render(gitCommitTemplates, result, failure, stage, formatter.ensureValue(findFlagValue(arguments, gitMessageFlagConstant)), workingDirectory)
	case gitRebaseSubcommandNameConstant:
		return formatter.render(gitRebaseTemplates, result, failure, stage, formatter.ensureValue(lastOrEmpty(operands)), workingDirectory)
	case gitRemoteSubcommandNameConstant:
		return formatter.describeGitRemoteMessage(operands, workingDirectory, result, failure, stage)
	case gitPushSubcommandNameConstant:
		return formatter.render(gitPushTemplates, result, failure, stage, formatter.ensureValue(argumentAtIndex(operands, 1)), formatter.ensureValue(firstOrEmpty(operands)), workingDirectory)
	case gitStatusSubcommandNameConstant:
		return formatter.render(gitStatusTemplates, result, failure, stage, workingDirectory)
	default:
		return formatter.render(genericTemplates, result, failure, stage, formatter.formatCommandLabel(command))
	}
}

func (formatter CommandMessageFormatter) describeGitRemoteMessage(operands []string, workingDirectory string, result ExecutionResult, failure error, stage messageStage) string {
	remoteName := formatter.ensureValue(argumentAtIndex(operands, 1))
	switch firstOrEmpty(operands) {
	case gitRemoteAddActionConstant:
		return formatter.render(gitRemoteAddTemplates, result, failure, stage, remoteName, workingDirectory)
	case gitRemoteRemoveActionConstant, gitRemoteRemoveShortActionConstant:
		return formatter.render(gitRemoteRemoveTemplates, result, failure, stage, remoteName, workingDirectory)
	default:
		return formatter.render(genericTemplates, result, failure, stage, gitRemoteSubcommandNameConstant+commandArgumentsJoinSeparatorConstant+strings.Join(operands, commandArgumentsJoinSeparatorConstant))
	}
}

func (formatter CommandMessageFormatter) describeGitHubMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	repository := findFlagValue(arguments, githubRepoFlagConstant)
	if len(repository) == 0 {
		repository = githubCurrentRepositoryLabelConstant
	}
	action := strings.TrimSpace(argumentAtIndex(arguments, 1))
	operand := formatter.ensureValue(argumentAtIndex(arguments, 2))

	switch strings.TrimSpace(arguments[0]) {
	case githubPullRequestSubcommandConstant:
		switch action {
		case githubListActionConstant:
			return formatter.render(githubPullRequestListTemplates, result, failure, stage, repository)
		case githubCreateActionConstant:
			return formatter.render(githubPullRequestCreateTemplates, result, failure, stage, formatter.ensureValue(findFlagValue(arguments, githubHeadFlagConstant)), repository)
		case githubEditActionConstant:
			return formatter.render(githubPullRequestEditTemplates, result, failure, stage, operand, repository)
		case githubCloseActionConstant:
			return formatter.render(githubPullRequestCloseTemplates, result, failure, stage, operand, repository)
		}
	case githubReleaseSubcommandConstant:
		if action == githubViewActionConstant {
			return formatter.render(githubReleaseViewTemplates, result, failure, stage, operand, repository)
		}
	case githubRepoSubcommandConstant:
		if action == githubViewActionConstant {
			return formatter.render(githubRepoViewTemplates, result, failure, stage, operand)
		}
	}
	return formatter.render(genericTemplates, result, failure, stage, formatter.formatCommandLabel(command))
}

func (formatter CommandMessageFormatter) render(templates stageTemplates, result ExecutionResult, failure error, stage messageStage, values ...any) string {
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, values...)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, values...)
	case messageStageFailure:
		return fmt.Sprintf(templates.failure, append(values, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))...)
	case messageStageExecutionFailure:
		return fmt.Sprintf(templates.executionFailure, append(values, formatter.describeFailure(failure))...)
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	return fmt.Sprintf(commandLabelTemplateConstant, formatCommandLine(command), formatter.formatWorkingDirectorySuffix(command))
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

// nonFlagArguments drops flags and the values of flags that take one.
func nonFlagArguments(arguments []string) []string {
	operands := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		trimmed := strings.TrimSpace(arguments[index])
		if len(trimmed) == 0 {
			continue
		}
		if strings.HasPrefix(trimmed, flagPrefixConstant) {
			if flagTakesValue(trimmed) {
				index++
			}
			continue
		}
		operands = append(operands, trimmed)
	}
	return operands
}

func flagTakesValue(flag string) bool {
	switch flag {
	case gitMessageFlagConstant, gitCreateBranchFlagConstant:
		return true
	default:
		return false
	}
}

func findFlagValue(arguments []string, flag string) string {
	for index := 0; index < len(arguments)-1; index++ {
		if strings.TrimSpace(arguments[index]) == flag {
			return strings.TrimSpace(arguments[index+1])
		}
	}
	return emptyStringConstant
}

func argumentAtIndex(arguments []string, index int) string {
	if index >= 0 && index < len(arguments) {
		return arguments[index]
	}
	return emptyStringConstant
}

func firstOrEmpty(arguments []string) string {
	return argumentAtIndex(arguments, 0)
}

func lastOrEmpty(arguments []string) string {
	return argumentAtIndex(arguments, len(arguments)-1)
}
