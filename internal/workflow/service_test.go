package workflow_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/npm-node-sync/internal/githubcli"
	"github.com/temirov/npm-node-sync/internal/nodesync"
	"github.com/temirov/npm-node-sync/internal/pullrequests"
	"github.com/temirov/npm-node-sync/internal/registry"
	"github.com/temirov/npm-node-sync/internal/releasenotes"
	"github.com/temirov/npm-node-sync/internal/tarball"
	"github.com/temirov/npm-node-sync/internal/workflow"
)

const (
	testTokenConstant          = "ghp_workflowToken"
	testTarballPathConstant    = "/tmp/npm-10.9.0.tgz"
	testPullRequestURLConstant = "https://github.com/nodejs/node/pull/60"
)

type stubRegistry struct {
	requestedSpecs []string
}

func (stub *stubRegistry) ResolveManifest(_ context.Context, packageName string, spec string) (registry.Manifest, registry.Packument, error) {
	stub.requestedSpecs = append(stub.requestedSpecs, packageName+"@"+spec)
	packument := registry.Packument{
		Name: "npm",
		Versions: map[string]registry.Manifest{
			"10.8.1": {Name: "npm", Version: "10.8.1"},
			"10.8.2": {Name: "npm", Version: "10.8.2"},
			"10.8.3": {Name: "npm", Version: "10.8.3"},
			"10.9.0": {Name: "npm", Version: "10.9.0"},
		},
	}
	return registry.Manifest{Name: "npm", Version: "10.9.0", SourceReference: "npm@" + spec}, packument, nil
}

type stubAssembler struct {
	options []tarball.AssemblyOptions
}

func (stub *stubAssembler) Assemble(_ context.Context, options tarball.AssemblyOptions) (string, error) {
	stub.options = append(stub.options, options)
	return testTarballPathConstant, nil
}

type stubSyncer struct {
	options []nodesync.SyncOptions
}

func (stub *stubSyncer) Sync(_ context.Context, options nodesync.SyncOptions) (nodesync.SyncResult, error) {
	stub.options = append(stub.options, options)
	return nodesync.SyncResult{Pushed: !options.DryRun}, nil
}

type stubForkResolver struct {
	login             string
	missingRepository string
	lookedUp          []string
}

func (stub *stubForkResolver) ResolveAuthenticatedLogin(context.Context) (string, error) {
	return stub.login, nil
}

func (stub *stubForkResolver) ResolveRepoMetadata(_ context.Context, repository string) (githubcli.RepositoryMetadata, error) {
	stub.lookedUp = append(stub.lookedUp, repository)
	if repository == stub.missingRepository {
		return githubcli.RepositoryMetadata{}, errors.New("Could not resolve to a Repository")
	}
	return githubcli.RepositoryMetadata{NameWithOwner: repository, IsFork: true}, nil
}

type stubReconciler struct {
	plan          pullrequests.Plan
	targets       []pullrequests.Target
	appliedBodies []string
	appliedDryRun []bool
}

func (stub *stubReconciler) Discover(_ context.Context, target pullrequests.Target) (pullrequests.Plan, error) {
	stub.targets = append(stub.targets, target)
	return stub.plan, nil
}

func (stub *stubReconciler) Apply(_ context.Context, target pullrequests.Target, _ pullrequests.Plan, body string, dryRun bool) (pullrequests.Outcome, error) {
	stub.appliedBodies = append(stub.appliedBodies, body)
	stub.appliedDryRun = append(stub.appliedDryRun, dryRun)
	if dryRun {
		return pullrequests.Outcome{Action: pullrequests.ActionDryRun, DryRunCommand: "gh pr create", CompareURL: "https://github.com/nodejs/node/compare"}, nil
	}
	return pullrequests.Outcome{Action: pullrequests.ActionCreated, PullRequestURL: testPullRequestURLConstant, ClosedPullRequests: []int{52}}, nil
}

type stubComposer struct {
	requests []releasenotes.BodyRequest
}

func (stub *stubComposer) Compose(_ context.Context, request releasenotes.BodyRequest) (string, error) {
	stub.requests = append(stub.requests, request)
	return "body for " + request.TargetVersion, nil
}

type staticTranscript []string

func (transcript staticTranscript) Entries() []string {
	return transcript
}

type serviceFixture struct {
	registry   *stubRegistry
	assembler  *stubAssembler
	syncer     *stubSyncer
	github     *stubForkResolver
	reconciler *stubReconciler
	composer   *stubComposer
	service    *workflow.Service
	options    workflow.Options
}

func newServiceFixture(testInstance *testing.T, vendoredVersionError error) *serviceFixture {
	testInstance.Helper()
	nodeDirectory := testInstance.TempDir()
	_, initError := git.PlainInit(nodeDirectory, false)
	require.NoError(testInstance, initError)

	fixture := &serviceFixture{
		registry:   &stubRegistry{},
		assembler:  &stubAssembler{},
		syncer:     &stubSyncer{},
		github:     &stubForkResolver{login: "octocat"},
		reconciler: &stubReconciler{plan: pullrequests.Plan{Superseded: []githubcli.PullRequest{{Number: 52}}}},
		composer:   &stubComposer{},
	}

	service, creationError := workflow.NewService(workflow.Dependencies{
		Logger:       zap.NewNop(),
		Registry:     fixture.registry,
		Assembler:    fixture.assembler,
		Syncer:       fixture.syncer,
		GitHub:       fixture.github,
		PullRequests: fixture.reconciler,
		Notes:        fixture.composer,
		VendoredVersionReader: func(repositoryPath string, remote string, branch string, vendoredPath string) (string, error) {
			if vendoredVersionError != nil {
				return "", vendoredVersionError
			}
			return "10.8.2", nil
		},
		Transcript: staticTranscript{"git fetch origin (in node)"},
	})
	require.NoError(testInstance, creationError)
	fixture.service = service
	fixture.options = workflow.Options{
		VersionSpec:   "10.9",
		NodeDirectory: nodeDirectory,
		WorkingTree:   testInstance.TempDir(),
		Token:         testTokenConstant,
		TemporaryRoot: testInstance.TempDir(),
	}
	return fixture
}

func TestServiceExecuteCreatesPullRequest(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, nil)

	report, executionError := fixture.service.Execute(context.Background(), fixture.options)
	require.NoError(testInstance, executionError)

	require.Equal(testInstance, []string{"npm@10.9"}, fixture.registry.requestedSpecs)
	require.Equal(testInstance, []string{"octocat/node"}, fixture.github.lookedUp)

	require.Len(testInstance, fixture.assembler.options, 1)
	assemblyOptions := fixture.assembler.options[0]
	require.Equal(testInstance, fixture.options.WorkingTree, assemblyOptions.WorkingTree)
	require.Equal(testInstance, "v10.9.0", assemblyOptions.ReleaseTag)
	require.DirExists(testInstance, fixture.options.TemporaryRoot)
	_, statError := os.Stat(assemblyOptions.TemporaryDirectory)
	require.True(testInstance, os.IsNotExist(statError), "temporary directory must be removed after the run")

	require.Equal(testInstance, []nodesync.SyncOptions{{
		RepositoryPath: fixture.options.NodeDirectory,
		BaseRemote:     "origin",
		BaseBranch:     "main",
		HeadBranch:     "npm-v10.9.0",
		VendoredPath:   "deps/npm",
		TarballPath:    testTarballPathConstant,
		CommitMessage:  "deps: upgrade npm to 10.9.0",
		ForkRemoteName: "octocat",
		ForkRemoteURL:  "https://" + testTokenConstant + "@github.com/octocat/node",
	}}, fixture.syncer.options)

	require.Equal(testInstance, []releasenotes.BodyRequest{{
		TargetVersion:          "10.9.0",
		Versions:               []string{"10.8.3", "10.9.0"},
		SupersededPullRequests: []int{52},
	}}, fixture.composer.requests)
	require.Equal(testInstance, []string{"body for 10.9.0"}, fixture.reconciler.appliedBodies)
	require.Equal(testInstance, []bool{false}, fixture.reconciler.appliedDryRun)

	require.Equal(testInstance, workflow.Report{
		Action:             "created",
		Package:            "npm",
		Version:            "10.9.0",
		SourceReference:    "npm@10.9",
		PreviousVersion:    "10.8.2",
		Versions:           []string{"10.8.3", "10.9.0"},
		BaseRepository:     "nodejs/node",
		BaseBranch:         "main",
		ForkRepository:     "octocat/node",
		HeadBranch:         "npm-v10.9.0",
		Pushed:             true,
		PullRequestURL:     testPullRequestURLConstant,
		ClosedPullRequests: []int{52},
		Commands:           []string{"git fetch origin (in node)"},
	}, report)
}

func TestServiceExecuteDryRun(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, nil)
	fixture.options.DryRun = true
	fixture.options.BaseBranch = "v22.x-staging"
	fixture.options.ForkRepository = "npm/node"

	report, executionError := fixture.service.Execute(context.Background(), fixture.options)
	require.NoError(testInstance, executionError)

	require.Equal(testInstance, []string{"npm/node"}, fixture.github.lookedUp)
	require.True(testInstance, fixture.syncer.options[0].DryRun)
	require.Equal(testInstance, "v22.x-staging", fixture.syncer.options[0].BaseBranch)
	require.Equal(testInstance, []bool{true}, fixture.reconciler.appliedDryRun)
	require.Equal(testInstance, "dry-run", report.Action)
	require.False(testInstance, report.Pushed)
	require.Equal(testInstance, "gh pr create", report.Command)
	require.Equal(testInstance, "https://github.com/nodejs/node/compare", report.CompareURL)
}

func TestServiceExecuteWithoutVendoredVersionHasNoLowerBound(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, errors.New("reference not found"))

	report, executionError := fixture.service.Execute(context.Background(), fixture.options)
	require.NoError(testInstance, executionError)
	require.Empty(testInstance, report.PreviousVersion)
	require.Equal(testInstance, []string{"10.8.1", "10.8.2", "10.8.3", "10.9.0"}, report.Versions)
}

func TestServiceExecuteFailures(testInstance *testing.T) {
	testCases := []struct {
		name   string
		mutate func(fixture *serviceFixture)
		verify func(testInstance *testing.T, executionError error)
	}{
		{
			name: "missing_version_spec",
			mutate: func(fixture *serviceFixture) {
				fixture.options.VersionSpec = " "
			},
			verify: func(testInstance *testing.T, executionError error) {
				require.Equal(testInstance, workflow.InvalidInputError{FieldName: "version_spec", Message: "value required"}, executionError)
			},
		},
		{
			name: "missing_token",
			mutate: func(fixture *serviceFixture) {
				fixture.options.Token = ""
			},
			verify: func(testInstance *testing.T, executionError error) {
				require.Equal(testInstance, workflow.InvalidInputError{FieldName: "token", Message: "value required"}, executionError)
			},
		},
		{
			name: "registry_only_without_working_tree",
			mutate: func(fixture *serviceFixture) {
				fixture.options.RegistryOnly = true
				fixture.options.WorkingTree = ""
			},
			verify: func(testInstance *testing.T, executionError error) {
				require.Equal(testInstance, workflow.InvalidInputError{FieldName: "working_tree", Message: "value required"}, executionError)
			},
		},
		{
			name: "missing_clone",
			mutate: func(fixture *serviceFixture) {
				fixture.options.NodeDirectory = fixture.options.NodeDirectory + "/absent"
			},
			verify: func(testInstance *testing.T, executionError error) {
				require.IsType(testInstance, nodesync.RepositoryNotFoundError{}, executionError)
			},
		},
		{
			name: "missing_fork",
			mutate: func(fixture *serviceFixture) {
				fixture.github.missingRepository = "octocat/node"
			},
			verify: func(testInstance *testing.T, executionError error) {
				var forkError workflow.ForkNotFoundError
				require.ErrorAs(testInstance, executionError, &forkError)
				require.Equal(testInstance, "octocat/node", forkError.Repository)
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newServiceFixture(testInstance, nil)
			testCase.mutate(fixture)

			_, executionError := fixture.service.Execute(context.Background(), fixture.options)
			require.Error(testInstance, executionError)
			testCase.verify(testInstance, executionError)
			require.Empty(testInstance, fixture.syncer.options)
			require.Empty(testInstance, fixture.reconciler.appliedBodies)
		})
	}
}

func TestServicePreviewNotesDoesNotMutate(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, nil)
	fixture.options.Token = ""
	fixture.options.WorkingTree = ""

	body, previewError := fixture.service.PreviewNotes(context.Background(), fixture.options)
	require.NoError(testInstance, previewError)
	require.Equal(testInstance, "body for 10.9.0", body)

	require.Empty(testInstance, fixture.assembler.options)
	require.Empty(testInstance, fixture.syncer.options)
	require.Empty(testInstance, fixture.reconciler.appliedBodies)
	require.Len(testInstance, fixture.reconciler.targets, 1)
	require.Equal(testInstance, "main", fixture.reconciler.targets[0].BaseBranch)
}

func TestNewServiceRequiresDependencies(testInstance *testing.T) {
	_, creationError := workflow.NewService(workflow.Dependencies{Logger: zap.NewNop()})
	require.ErrorIs(testInstance, creationError, workflow.ErrDependenciesNotConfigured)
}
