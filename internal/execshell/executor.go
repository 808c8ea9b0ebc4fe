package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	loggerNotConfiguredMessageConstant        = "shell executor logger not configured"
	commandRunnerNotConfiguredMessageConstant = "shell executor command runner not configured"
	commandFailedErrorTemplateConstant        = "%s failed with exit code %d%s"
	commandExecutionErrorTemplateConstant     = "%s failed: %s"
	commandNameLogFieldConstant               = "command"
	commandArgumentsLogFieldConstant          = "arguments"
	commandWorkingDirectoryLogFieldConstant   = "working_directory"
	commandExitCodeLogFieldConstant           = "exit_code"
	commandStandardErrorLogFieldConstant      = "stderr"
	commandStartedLogMessageConstant          = "command started"
	commandCompletedLogMessageConstant        = "command completed"
	commandFailedLogMessageConstant           = "command failed"
	commandExecutionFailedLogMessageConstant  = "command execution failed"
)

// CommandName identifies an external executable driven by the executor.
type CommandName string

// Supported executables.
const (
	CommandGit    CommandName = CommandName("git")
	CommandGitHub CommandName = CommandName("gh")
)

// CommandDetails describes the arguments and process environment for one invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand pairs an executable with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures process output and exit status.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner runs a ShellCommand and reports its result.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// CommandEventObserver receives lifecycle notifications for shell command execution.
type CommandEventObserver interface {
	CommandStarted(command ShellCommand)
	CommandCompleted(command ShellCommand, result ExecutionResult)
	CommandExecutionFailed(command ShellCommand, failure error)
}

var (
	// ErrLoggerNotConfigured indicates the executor was built without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrCommandRunnerNotConfigured indicates the executor was built without a runner.
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
)

// CommandFailedError reports a command that exited with a non-zero status.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failed command.
func (failedError CommandFailedError) Error() string {
	standardErrorSuffix := emptyStringConstant
	trimmedStandardError := strings.TrimSpace(failedError.Result.StandardError)
	if len(trimmedStandardError) > 0 {
		standardErrorSuffix = fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
	}
	return fmt.Sprintf(commandFailedErrorTemplateConstant, formatCommandLine(failedError.Command), failedError.Result.ExitCode, standardErrorSuffix)
}

// CommandExecutionError reports a command that could not be started or awaited.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (executionError CommandExecutionError) Error() string {
	causeMessage := unknownFailureMessageConstant
	if executionError.Cause != nil {
		causeMessage = executionError.Cause.Error()
	}
	return fmt.Sprintf(commandExecutionErrorTemplateConstant, formatCommandLine(executionError.Command), causeMessage)
}

// Unwrap exposes the underlying cause.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.Cause
}

// ShellExecutorOption customizes a ShellExecutor.
type ShellExecutorOption func(executor *ShellExecutor)

// WithHumanReadableLogging switches lifecycle logging to sentence style messages.
func WithHumanReadableLogging(enabled bool) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		executor.humanReadableLogging = enabled
	}
}

// WithCommandEventObserver registers an additional lifecycle observer.
func WithCommandEventObserver(observer CommandEventObserver) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		if observer != nil {
			executor.observers = append(executor.observers, observer)
		}
	}
}

// WithSecretRedactor masks secrets in every logged command, observer notification and error.
func WithSecretRedactor(redactor *SecretRedactor) ShellExecutorOption {
	return func(executor *ShellExecutor) {
		if redactor != nil {
			executor.redactor = redactor
		}
	}
}

// ShellExecutor runs git and gh with lifecycle logging and typed errors.
type ShellExecutor struct {
	logger               *zap.Logger
	runner               CommandRunner
	formatter            CommandMessageFormatter
	redactor             *SecretRedactor
	observers            []CommandEventObserver
	humanReadableLogging bool
}

// NewShellExecutor validates collaborators and constructs a ShellExecutor.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, options ...ShellExecutorOption) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	executor := &ShellExecutor{
		logger:    logger,
		runner:    runner,
		formatter: CommandMessageFormatter{},
		redactor:  NewSecretRedactor(),
	}
	for _, option := range options {
		if option != nil {
			option(executor)
		}
	}
	return executor, nil
}

// ExecuteGit runs git with the supplied details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// ExecuteGitHubCLI runs gh with the supplied details.
func (executor *ShellExecutor) ExecuteGitHubCLI(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGitHub, Details: details})
}

// Execute runs an arbitrary command. A non-zero exit code yields CommandFailedError.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	redactedCommand := executor.redactor.RedactCommand(command)
	executor.logStarted(redactedCommand)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		redactedFailure := executor.redactor.RedactError(runError)
		executor.logExecutionFailure(redactedCommand, redactedFailure)
		return ExecutionResult{}, CommandExecutionError{Command: redactedCommand, Cause: redactedFailure}
	}

	redactedResult := executor.redactor.RedactResult(executionResult)
	executor.logCompleted(redactedCommand, redactedResult)
	if executionResult.ExitCode != 0 {
		return ExecutionResult{}, CommandFailedError{Command: redactedCommand, Result: redactedResult}
	}
	return executionResult, nil
}

func (executor *ShellExecutor) logStarted(command ShellCommand) {
	for _, observer := range executor.observers {
		observer.CommandStarted(command)
	}
	if executor.humanReadableLogging {
		executor.logger.Info(executor.formatter.BuildStartedMessage(command))
		return
	}
	executor.logger.Debug(commandStartedLogMessageConstant, executor.commandFields(command)...)
}

func (executor *ShellExecutor) logCompleted(command ShellCommand, result ExecutionResult) {
	for _, observer := range executor.observers {
		observer.CommandCompleted(command, result)
	}
	if result.ExitCode == 0 {
		if executor.humanReadableLogging {
			executor.logger.Info(executor.formatter.BuildSuccessMessage(command))
			return
		}
		executor.logger.Debug(commandCompletedLogMessageConstant, executor.commandFields(command)...)
		return
	}

	if executor.humanReadableLogging {
		executor.logger.Warn(executor.formatter.BuildFailureMessage(command, result))
		return
	}
	failureFields := append(executor.commandFields(command),
		zap.Int(commandExitCodeLogFieldConstant, result.ExitCode),
		zap.String(commandStandardErrorLogFieldConstant, strings.TrimSpace(result.StandardError)),
	)
	executor.logger.Warn(commandFailedLogMessageConstant, failureFields...)
}

func (executor *ShellExecutor) logExecutionFailure(command ShellCommand, failure error) {
	for _, observer := range executor.observers {
		observer.CommandExecutionFailed(command, failure)
	}
	if executor.humanReadableLogging {
		executor.logger.Error(executor.formatter.BuildExecutionFailureMessage(command, failure))
		return
	}
	executor.logger.Error(commandExecutionFailedLogMessageConstant, append(executor.commandFields(command), zap.Error(failure))...)
}

func (executor *ShellExecutor) commandFields(command ShellCommand) []zap.Field {
	return []zap.Field{
		zap.String(commandNameLogFieldConstant, string(command.Name)),
		zap.Strings(commandArgumentsLogFieldConstant, command.Details.Arguments),
		zap.String(commandWorkingDirectoryLogFieldConstant, command.Details.WorkingDirectory),
	}
}

func formatCommandLine(command ShellCommand) string {
	commandParts := append([]string{string(command.Name)}, command.Details.Arguments...)
	return strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)
}
