package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/temirov/npm-node-sync/internal/execshell"
)

const (
	commandArgumentsJoinSeparatorConstant  = " "
	workingDirectorySuffixTemplateConstant = " (in %s)"
	exitCodeSuffixTemplateConstant         = " [exit %d]"
	executionFailureSuffixConstant         = " [not started]"
)

// CommandTranscript records every executed command line. It implements
// execshell.CommandEventObserver and only ever sees redacted commands.
type CommandTranscript struct {
	mutex   sync.Mutex
	entries []string
}

// NewCommandTranscript constructs an empty transcript.
func NewCommandTranscript() *CommandTranscript {
	return &CommandTranscript{}
}

// CommandStarted ignores start events; entries are written once the outcome is known.
func (transcript *CommandTranscript) CommandStarted(execshell.ShellCommand) {}

// CommandCompleted records the command with its exit code when non-zero.
func (transcript *CommandTranscript) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	entry := formatCommandLine(command)
	if result.ExitCode != 0 {
		entry += fmt.Sprintf(exitCodeSuffixTemplateConstant, result.ExitCode)
	}
	transcript.append(entry)
}

// CommandExecutionFailed records a command that could not be started.
func (transcript *CommandTranscript) CommandExecutionFailed(command execshell.ShellCommand, _ error) {
	transcript.append(formatCommandLine(command) + executionFailureSuffixConstant)
}

// Entries returns a copy of the recorded command lines in execution order.
func (transcript *CommandTranscript) Entries() []string {
	if transcript == nil {
		return nil
	}
	transcript.mutex.Lock()
	defer transcript.mutex.Unlock()
	return append([]string(nil), transcript.entries...)
}

func (transcript *CommandTranscript) append(entry string) {
	if transcript == nil {
		return
	}
	transcript.mutex.Lock()
	defer transcript.mutex.Unlock()
	transcript.entries = append(transcript.entries, entry)
}

func formatCommandLine(command execshell.ShellCommand) string {
	commandLine := strings.Join(append([]string{string(command.Name)}, command.Details.Arguments...), commandArgumentsJoinSeparatorConstant)
	if workingDirectory := strings.TrimSpace(command.Details.WorkingDirectory); len(workingDirectory) > 0 {
		commandLine += fmt.Sprintf(workingDirectorySuffixTemplateConstant, workingDirectory)
	}
	return commandLine
}
