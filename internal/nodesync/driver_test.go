package nodesync_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/npm-node-sync/internal/execshell"
	"github.com/temirov/npm-node-sync/internal/nodesync"
	"github.com/temirov/npm-node-sync/internal/tarball"
)

const testForkRemoteURLConstant = "https://ghp_secret@github.com/npm/node"

type recordingGitExecutor struct {
	failingCommands map[string]error
	recordedDetails []execshell.CommandDetails
}

func (executor *recordingGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recordedDetails = append(executor.recordedDetails, details)
	if failure, failing := executor.failingCommands[strings.Join(details.Arguments, " ")]; failing {
		return execshell.ExecutionResult{}, failure
	}
	return execshell.ExecutionResult{}, nil
}

func (executor *recordingGitExecutor) commandLines() []string {
	commandLines := make([]string, 0, len(executor.recordedDetails))
	for _, details := range executor.recordedDetails {
		commandLines = append(commandLines, strings.Join(details.Arguments, " "))
	}
	return commandLines
}

func commandFailure(exitCode int) error {
	return execshell.CommandFailedError{Command: execshell.ShellCommand{Name: execshell.CommandGit}, Result: execshell.ExecutionResult{ExitCode: exitCode}}
}

func packTestTarball(testInstance *testing.T) string {
	testInstance.Helper()
	sourceDirectory := testInstance.TempDir()
	require.NoError(testInstance, os.MkdirAll(filepath.Join(sourceDirectory, "lib"), 0o755))
	require.NoError(testInstance, os.WriteFile(filepath.Join(sourceDirectory, "package.json"), []byte(`{"version":"10.9.0"}`), 0o644))
	require.NoError(testInstance, os.WriteFile(filepath.Join(sourceDirectory, "lib", "npm.js"), []byte("module.exports = {}\n"), 0o644))
	archivePath := filepath.Join(testInstance.TempDir(), "npm-10.9.0.tgz")
	require.NoError(testInstance, tarball.Pack(sourceDirectory, archivePath, tarball.PackOptions{Prefix: tarball.PackagePrefix}))
	return archivePath
}

func newSyncOptions(repositoryPath string, tarballPath string) nodesync.SyncOptions {
	return nodesync.SyncOptions{
		RepositoryPath: repositoryPath,
		BaseRemote:     "origin",
		BaseBranch:     "main",
		HeadBranch:     "npm-v10.9.0",
		TarballPath:    tarballPath,
		CommitMessage:  "deps: upgrade npm to 10.9.0",
		ForkRemoteName: "npm",
		ForkRemoteURL:  testForkRemoteURLConstant,
	}
}

func newTestDriver(testInstance *testing.T, executor *recordingGitExecutor) *nodesync.Driver {
	testInstance.Helper()
	driver, creationError := nodesync.NewDriver(nodesync.ServiceDependencies{Logger: zap.NewNop(), GitExecutor: executor})
	require.NoError(testInstance, creationError)
	return driver
}

func TestNewDriverValidation(testInstance *testing.T) {
	_, loggerError := nodesync.NewDriver(nodesync.ServiceDependencies{GitExecutor: &recordingGitExecutor{}})
	require.ErrorIs(testInstance, loggerError, nodesync.ErrLoggerNotConfigured)

	_, executorError := nodesync.NewDriver(nodesync.ServiceDependencies{Logger: zap.NewNop()})
	require.ErrorIs(testInstance, executorError, nodesync.ErrGitExecutorNotConfigured)
}

func TestSyncRunsEveryStepInOrder(testInstance *testing.T) {
	testCases := []struct {
		name             string
		dryRun           bool
		expectedCommands []string
		expectPushed     bool
	}{
		{
			name: "full_sync",
			expectedCommands: []string{
				"fetch origin",
				"checkout main",
				"reset --hard origin/main",
				"branch -D npm-v10.9.0",
				"checkout -b npm-v10.9.0",
				"add -A deps/npm",
				"commit -m deps: upgrade npm to 10.9.0",
				"rebase --whitespace=fix main",
				"remote remove npm",
				"remote add npm " + testForkRemoteURLConstant,
				"push npm npm-v10.9.0 --force",
			},
			expectPushed: true,
		},
		{
			name:   "dry_run_stays_local",
			dryRun: true,
			expectedCommands: []string{
				"fetch origin",
				"checkout main",
				"reset --hard origin/main",
				"branch -D npm-v10.9.0",
				"checkout -b npm-v10.9.0",
				"add -A deps/npm",
				"commit -m deps: upgrade npm to 10.9.0",
				"rebase --whitespace=fix main",
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repositoryPath := initNodeClone(testInstance, "10.8.1")
			staleFile := filepath.Join(repositoryPath, "deps", "npm", "stale.js")
			require.NoError(testInstance, os.WriteFile(staleFile, []byte("old"), 0o644))

			executor := &recordingGitExecutor{}
			options := newSyncOptions(repositoryPath, packTestTarball(testInstance))
			options.DryRun = testCase.dryRun

			result, syncError := newTestDriver(testInstance, executor).Sync(context.Background(), options)
			require.NoError(testInstance, syncError)
			require.Equal(testInstance, testCase.expectPushed, result.Pushed)
			require.Equal(testInstance, testCase.expectedCommands, executor.commandLines())
			for _, details := range executor.recordedDetails {
				require.Equal(testInstance, repositoryPath, details.WorkingDirectory)
			}

			require.NoFileExists(testInstance, staleFile)
			require.FileExists(testInstance, filepath.Join(repositoryPath, "deps", "npm", "lib", "npm.js"))
		})
	}
}

func TestSyncIgnoresCleanupFailures(testInstance *testing.T) {
	repositoryPath := initNodeClone(testInstance, "10.8.1")
	executor := &recordingGitExecutor{failingCommands: map[string]error{
		"branch -D npm-v10.9.0": commandFailure(1),
		"remote remove npm":     commandFailure(2),
	}}

	result, syncError := newTestDriver(testInstance, executor).Sync(context.Background(), newSyncOptions(repositoryPath, packTestTarball(testInstance)))
	require.NoError(testInstance, syncError)
	require.True(testInstance, result.Pushed)
}

func TestSyncAbortsOnFirstFailure(testInstance *testing.T) {
	repositoryPath := initNodeClone(testInstance, "10.8.1")
	executor := &recordingGitExecutor{failingCommands: map[string]error{
		"rebase --whitespace=fix main": commandFailure(1),
	}}

	_, syncError := newTestDriver(testInstance, executor).Sync(context.Background(), newSyncOptions(repositoryPath, packTestTarball(testInstance)))
	require.Error(testInstance, syncError)
	require.Contains(testInstance, syncError.Error(), "rebase")
	var commandError execshell.CommandFailedError
	require.ErrorAs(testInstance, syncError, &commandError)
	require.Equal(testInstance, "rebase --whitespace=fix main", executor.commandLines()[len(executor.commandLines())-1])
}

func TestSyncValidatesInputs(testInstance *testing.T) {
	executor := &recordingGitExecutor{}
	driver := newTestDriver(testInstance, executor)

	missingClone := newSyncOptions(filepath.Join(testInstance.TempDir(), "node"), "npm.tgz")
	_, missingCloneError := driver.Sync(context.Background(), missingClone)
	require.IsType(testInstance, nodesync.RepositoryNotFoundError{}, missingCloneError)

	missingRemote := newSyncOptions(testInstance.TempDir(), "npm.tgz")
	missingRemote.ForkRemoteURL = ""
	_, missingRemoteError := driver.Sync(context.Background(), missingRemote)
	require.Equal(testInstance, nodesync.InvalidOptionsError{FieldName: "fork_remote_url"}, missingRemoteError)

	dryRunWithoutFork := newSyncOptions(filepath.Join(testInstance.TempDir(), "node"), "npm.tgz")
	dryRunWithoutFork.DryRun = true
	dryRunWithoutFork.ForkRemoteName = ""
	dryRunWithoutFork.ForkRemoteURL = ""
	_, dryRunError := driver.Sync(context.Background(), dryRunWithoutFork)
	require.IsType(testInstance, nodesync.RepositoryNotFoundError{}, dryRunError)

	require.Empty(testInstance, executor.recordedDetails)
}
