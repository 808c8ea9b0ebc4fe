package execshell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const testWorkspaceDirectory = "/workspace/node"

func TestBuildStartedMessageDescribesSyncSteps(t *testing.T) {
	testCases := []struct {
		name     string
		command  ShellCommand
		expected string
	}{
		{
			name:     "fetch",
			command:  gitCommand("fetch", "origin"),
			expected: "Fetching from origin in /workspace/node",
		},
		{
			name:     "checkout_base",
			command:  gitCommand("checkout", "main"),
			expected: "Switching /workspace/node to main",
		},
		{
			name:     "checkout_new_branch",
			command:  gitCommand("checkout", "-b", "npm-10.9.0"),
			expected: "Creating and switching to branch npm-10.9.0 in /workspace/node",
		},
		{
			name:     "reset_hard",
			command:  gitCommand("reset", "--hard", "origin/main"),
			expected: "Resetting /workspace/node to origin/main",
		},
		{
			name:     "branch_delete",
			command:  gitCommand("branch", "-D", "npm-10.9.0"),
			expected: "Removing local branch npm-10.9.0 in /workspace/node",
		},
		{
			name:     "add",
			command:  gitCommand("add", "-A", "deps/npm"),
			expected: "Staging deps/npm in /workspace/node",
		},
		{
			name:     "commit",
			command:  gitCommand("commit", "-m", "deps: upgrade npm to 10.9.0"),
			expected: "Creating commit \"deps: upgrade npm to 10.9.0\" in /workspace/node",
		},
		{
			name:     "rebase",
			command:  gitCommand("rebase", "--whitespace=fix", "main"),
			expected: "Rebasing onto main in /workspace/node",
		},
		{
			name:     "remote_add",
			command:  gitCommand("remote", "add", "npm", "https://***@github.com/npm/node"),
			expected: "Adding remote npm in /workspace/node",
		},
		{
			name:     "remote_remove",
			command:  gitCommand("remote", "remove", "npm"),
			expected: "Removing remote npm in /workspace/node",
		},
		{
			name:     "push",
			command:  gitCommand("push", "npm", "npm-10.9.0", "--force"),
			expected: "Pushing npm-10.9.0 to npm from /workspace/node",
		},
		{
			name:     "status",
			command:  gitCommand("status", "--porcelain"),
			expected: "Reviewing working tree status in /workspace/node",
		},
		{
			name:     "pr_list",
			command:  githubCommand("pr", "list", "--repo", "nodejs/node", "--json", "number,title,url"),
			expected: "Listing pull requests in nodejs/node",
		},
		{
			name:     "pr_create",
			command:  githubCommand("pr", "create", "--repo", "nodejs/node", "--head", "npm:npm-10.9.0"),
			expected: "Opening pull request from npm:npm-10.9.0 in nodejs/node",
		},
		{
			name:     "pr_edit",
			command:  githubCommand("pr", "edit", "42", "--repo", "nodejs/node"),
			expected: "Updating pull request #42 in nodejs/node",
		},
		{
			name:     "pr_close",
			command:  githubCommand("pr", "close", "41", "--repo", "nodejs/node"),
			expected: "Closing pull request #41 in nodejs/node",
		},
		{
			name:     "release_view",
			command:  githubCommand("release", "view", "v10.9.0", "--repo", "npm/cli"),
			expected: "Fetching release notes for v10.9.0 from npm/cli",
		},
		{
			name:     "repo_view",
			command:  githubCommand("repo", "view", "npm/node"),
			expected: "Looking up repository npm/node",
		},
		{
			name:     "unknown_git_subcommand",
			command:  gitCommand("log", "-1"),
			expected: "Running git log -1 (in /workspace/node)",
		},
	}

	formatter := CommandMessageFormatter{}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.expected, formatter.BuildStartedMessage(testCase.command))
		})
	}
}

func TestBuildFailureMessageIncludesExitCodeAndStandardError(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := gitCommand("push", "npm", "npm-10.9.0", "--force")

	message := formatter.BuildFailureMessage(command, ExecutionResult{ExitCode: 1, StandardError: "  rejected\n"})

	require.Equal(t, "Failed to push npm-10.9.0 to npm from /workspace/node (exit code 1: rejected)", message)
}

func TestBuildExecutionFailureMessageIncludesCause(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := githubCommand("pr", "close", "41", "--repo", "nodejs/node")

	message := formatter.BuildExecutionFailureMessage(command, errors.New("executable file not found"))

	require.Equal(t, "Unable to close pull request #41 in nodejs/node: executable file not found", message)
}

func TestBuildSuccessMessageWithoutWorkingDirectoryUsesCurrentDirectory(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"fetch", "upstream"}}}

	require.Equal(t, "Fetched from upstream in current directory", formatter.BuildSuccessMessage(command))
}

func TestBuildStartedMessageWithoutRepositoryFlagUsesCurrentRepository(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := githubCommand("pr", "list")

	require.Equal(t, "Listing pull requests in current repository", formatter.BuildStartedMessage(command))
}

func gitCommand(arguments ...string) ShellCommand {
	return ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: arguments, WorkingDirectory: testWorkspaceDirectory}}
}

func githubCommand(arguments ...string) ShellCommand {
	return ShellCommand{Name: CommandGitHub, Details: CommandDetails{Arguments: arguments}}
}
