package pullrequests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/npm-node-sync/internal/gitrepo"
	"github.com/temirov/npm-node-sync/internal/githubcli"
)

// Action names what reconciliation did with the pull request.
type Action string

// Reconciliation actions.
const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDryRun  Action = "dry-run"
)

const (
	loggerNotConfiguredMessageConstant = "pull request logger not configured"
	githubNotConfiguredMessageConstant = "pull request github operations not configured"
	listErrorTemplateConstant          = "list pull requests in %s: %w"
	createErrorTemplateConstant        = "create pull request in %s: %w"
	editErrorTemplateConstant          = "edit pull request #%d in %s: %w"
	supersededCommentTemplateConstant  = "Closing in favor of %s"
	headReferenceTemplateConstant      = "%s:%s"
	githubCLIExecutableConstant        = "gh"
	argumentSeparatorConstant          = " "
	shellSpecialCharactersConstant     = " \t\n\"'$`\\*?[]#~;&|<>()"
	newerPullRequestLogMessageConstant = "Leaving pull request for a newer npm version open"
	closeFailedLogMessageConstant      = "Unable to close superseded pull request"
	closedLogMessageConstant           = "Closed superseded pull request"
	createdLogMessageConstant          = "Opened pull request"
	updatedLogMessageConstant          = "Updated pull request"
	dryRunLogMessageConstant           = "Dry run: pull request left unchanged"
	pullRequestNumberLogFieldConstant  = "pull_request_number"
	pullRequestURLLogFieldConstant     = "pull_request_url"
	pullRequestVersionLogFieldConstant = "pull_request_version"
	repositoryLogFieldConstant         = "repository"
	compareURLLogFieldConstant         = "compare_url"
)

var (
	// ErrLoggerNotConfigured indicates a nil logger was provided.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrGitHubNotConfigured indicates nil GitHub operations were provided.
	ErrGitHubNotConfigured = errors.New(githubNotConfiguredMessageConstant)
)

// GitHubOperations exposes the pull request calls used by the reconciler.
type GitHubOperations interface {
	ListPullRequests(executionContext context.Context, repository string, options githubcli.PullRequestListOptions) ([]githubcli.PullRequest, error)
	CreatePullRequest(executionContext context.Context, repository string, options githubcli.PullRequestCreateOptions) (string, error)
	EditPullRequest(executionContext context.Context, repository string, options githubcli.PullRequestEditOptions) error
	ClosePullRequest(executionContext context.Context, repository string, number int, comment string) error
}

// ServiceDependencies enumerates collaborators required by the reconciler.
type ServiceDependencies struct {
	Logger *zap.Logger
	GitHub GitHubOperations
}

// Target identifies where the update pull request lives.
type Target struct {
	BaseRepository gitrepo.Repository
	BaseBranch     string
	ForkRepository gitrepo.Repository
	HeadBranch     string
	TargetVersion  string
}

// Plan partitions the open update pull requests relative to the target version.
type Plan struct {
	Existing   *githubcli.PullRequest
	Superseded []githubcli.PullRequest
	Newer      []githubcli.PullRequest
}

// SupersededNumbers lists the numbers of the pull requests the update replaces.
func (plan Plan) SupersededNumbers() []int {
	numbers := make([]int, 0, len(plan.Superseded))
	for _, pullRequest := range plan.Superseded {
		numbers = append(numbers, pullRequest.Number)
	}
	return numbers
}

// Outcome reports what reconciliation did.
type Outcome struct {
	Action             Action
	PullRequestNumber  int
	PullRequestURL     string
	ClosedPullRequests []int
	FailedToClose      []int
	DryRunCommand      string
	CompareURL         string
}

// Reconciler creates, edits and closes npm update pull requests.
type Reconciler struct {
	logger *zap.Logger
	github GitHubOperations
}

// NewReconciler constructs a Reconciler.
func NewReconciler(dependencies ServiceDependencies) (*Reconciler, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.GitHub == nil {
		return nil, ErrGitHubNotConfigured
	}
	return &Reconciler{logger: dependencies.Logger, github: dependencies.GitHub}, nil
}

// Discover lists open update pull requests against the base branch and partitions them.
func (reconciler *Reconciler) Discover(executionContext context.Context, target Target) (Plan, error) {
	baseRepository := target.BaseRepository.FullName()
	pullRequests, listError := reconciler.github.ListPullRequests(executionContext, baseRepository, githubcli.PullRequestListOptions{
		State:       githubcli.PullRequestStateOpen,
		BaseBranch:  target.BaseBranch,
		TitleSearch: titleSearchTermConstant,
	})
	if listError != nil {
		return Plan{}, fmt.Errorf(listErrorTemplateConstant, baseRepository, listError)
	}

	plan := Partition(pullRequests, target.TargetVersion)
	for _, newerPullRequest := range plan.Newer {
		newerVersion, _ := TitleVersion(newerPullRequest.Title)
		reconciler.logger.Info(newerPullRequestLogMessageConstant,
			zap.Int(pullRequestNumberLogFieldConstant, newerPullRequest.Number),
			zap.String(pullRequestVersionLogFieldConstant, newerVersion),
			zap.String(pullRequestURLLogFieldConstant, newerPullRequest.URL),
		)
	}
	return plan, nil
}

// Partition sorts update pull requests by their title version. The lowest numbered exact match
// is kept for editing; other exact matches and all lower versions are superseded.
func Partition(pullRequests []githubcli.PullRequest, targetVersion string) Plan {
	normalizedTarget := strings.TrimPrefix(strings.TrimSpace(targetVersion), semverPrefixConstant)

	ordered := append([]githubcli.PullRequest(nil), pullRequests...)
	sort.SliceStable(ordered, func(leftIndex int, rightIndex int) bool {
		return ordered[leftIndex].Number < ordered[rightIndex].Number
	})

	var plan Plan
	for index := range ordered {
		pullRequest := ordered[index]
		version, matched := TitleVersion(pullRequest.Title)
		if !matched {
			continue
		}
		switch comparison := compareVersions(version, normalizedTarget); {
		case comparison == 0 && plan.Existing == nil:
			plan.Existing = &pullRequest
		case comparison <= 0:
			plan.Superseded = append(plan.Superseded, pullRequest)
		default:
			plan.Newer = append(plan.Newer, pullRequest)
		}
	}
	return plan
}

// Apply edits or creates the update pull request with body and closes superseded ones.
// In dry run it only reports the command that would open the pull request.
func (reconciler *Reconciler) Apply(executionContext context.Context, target Target, plan Plan, body string, dryRun bool) (Outcome, error) {
	baseRepository := target.BaseRepository.FullName()
	title := Title(target.TargetVersion)

	if dryRun {
		createArguments := githubcli.CreatePullRequestArguments(baseRepository, githubcli.PullRequestCreateOptions{
			BaseBranch:    target.BaseBranch,
			HeadReference: headReference(target),
			Title:         title,
		})
		outcome := Outcome{
			Action:        ActionDryRun,
			DryRunCommand: RenderCommand(githubCLIExecutableConstant, createArguments),
			CompareURL:    target.BaseRepository.CompareURL(target.BaseBranch, target.ForkRepository, target.HeadBranch),
		}
		if plan.Existing != nil {
			outcome.PullRequestNumber = plan.Existing.Number
			outcome.PullRequestURL = plan.Existing.URL
		}
		reconciler.logger.Info(dryRunLogMessageConstant, zap.String(compareURLLogFieldConstant, outcome.CompareURL))
		return outcome, nil
	}

	var outcome Outcome
	if plan.Existing != nil {
		editError := reconciler.github.EditPullRequest(executionContext, baseRepository, githubcli.PullRequestEditOptions{
			Number: plan.Existing.Number,
			Title:  title,
			Body:   body,
		})
		if editError != nil {
			return Outcome{}, fmt.Errorf(editErrorTemplateConstant, plan.Existing.Number, baseRepository, editError)
		}
		outcome = Outcome{Action: ActionUpdated, PullRequestNumber: plan.Existing.Number, PullRequestURL: plan.Existing.URL}
		reconciler.logger.Info(updatedLogMessageConstant, zap.String(pullRequestURLLogFieldConstant, outcome.PullRequestURL))
	} else {
		pullRequestURL, createError := reconciler.github.CreatePullRequest(executionContext, baseRepository, githubcli.PullRequestCreateOptions{
			BaseBranch:    target.BaseBranch,
			HeadReference: headReference(target),
			Title:         title,
			Body:          body,
		})
		if createError != nil {
			return Outcome{}, fmt.Errorf(createErrorTemplateConstant, baseRepository, createError)
		}
		outcome = Outcome{Action: ActionCreated, PullRequestURL: pullRequestURL}
		reconciler.logger.Info(createdLogMessageConstant, zap.String(pullRequestURLLogFieldConstant, pullRequestURL))
	}

	closeComment := fmt.Sprintf(supersededCommentTemplateConstant, outcome.PullRequestURL)
	for _, supersededPullRequest := range plan.Superseded {
		closeError := reconciler.github.ClosePullRequest(executionContext, baseRepository, supersededPullRequest.Number, closeComment)
		if closeError != nil {
			reconciler.logger.Warn(closeFailedLogMessageConstant,
				zap.Int(pullRequestNumberLogFieldConstant, supersededPullRequest.Number),
				zap.String(repositoryLogFieldConstant, baseRepository),
				zap.Error(closeError),
			)
			outcome.FailedToClose = append(outcome.FailedToClose, supersededPullRequest.Number)
			continue
		}
		reconciler.logger.Info(closedLogMessageConstant, zap.Int(pullRequestNumberLogFieldConstant, supersededPullRequest.Number))
		outcome.ClosedPullRequests = append(outcome.ClosedPullRequests, supersededPullRequest.Number)
	}

	return outcome, nil
}

// RenderCommand renders an executable and its arguments as a copyable shell line.
func RenderCommand(executable string, arguments []string) string {
	renderedParts := []string{executable}
	for _, argument := range arguments {
		if len(argument) == 0 || strings.ContainsAny(argument, shellSpecialCharactersConstant) {
			renderedParts = append(renderedParts, strconv.Quote(argument))
			continue
		}
		renderedParts = append(renderedParts, argument)
	}
	return strings.Join(renderedParts, argumentSeparatorConstant)
}

func headReference(target Target) string {
	return fmt.Sprintf(headReferenceTemplateConstant, target.ForkRepository.Owner, target.HeadBranch)
}
