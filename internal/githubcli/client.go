package githubcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/temirov/npm-node-sync/internal/execshell"
)

const (
	repoSubcommandConstant                  = "repo"
	viewSubcommandConstant                  = "view"
	pullRequestSubcommandConstant           = "pr"
	releaseSubcommandConstant               = "release"
	listSubcommandConstant                  = "list"
	createSubcommandConstant                = "create"
	editSubcommandConstant                  = "edit"
	closeSubcommandConstant                 = "close"
	apiSubcommandConstant                   = "api"
	jsonFlagConstant                        = "--json"
	jqFlagConstant                          = "--jq"
	repoFlagConstant                        = "--repo"
	stateFlagConstant                       = "--state"
	baseFlagConstant                        = "--base"
	headFlagConstant                        = "--head"
	titleFlagConstant                       = "--title"
	bodyFileFlagConstant                    = "--body-file"
	commentFlagConstant                     = "--comment"
	searchFlagConstant                      = "--search"
	limitFlagConstant                       = "--limit"
	stdinReferenceConstant                  = "-"
	authenticatedUserEndpointConstant       = "user"
	loginQueryConstant                      = ".login"
	repositoryFieldNameConstant             = "repository"
	baseBranchFieldNameConstant             = "base_branch"
	headReferenceFieldNameConstant          = "head_reference"
	titleFieldNameConstant                  = "title"
	stateFieldNameConstant                  = "state"
	pullRequestNumberFieldNameConstant      = "pull_request_number"
	releaseTagFieldNameConstant             = "release_tag"
	requiredValueMessageConstant            = "value required"
	positiveNumberMessageConstant           = "must be a positive number"
	emptyResponseMessageConstant            = "empty response"
	executorNotConfiguredMessageConstant    = "github cli executor not configured"
	pullRequestLimitDefaultValueConstant    = 100
	pullRequestJSONFieldsConstant           = "number,title,url,headRefName"
	repoViewJSONFieldsConstant              = "defaultBranchRef,nameWithOwner,description,isFork"
	releaseViewJSONFieldsConstant           = "body"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	inTitleSearchTemplateConstant           = "in:title %s"
	repositoryMetadataOperationNameConstant = OperationName("ResolveRepoMetadata")
	authenticatedLoginOperationNameConstant = OperationName("ResolveAuthenticatedLogin")
	listPullRequestsOperationNameConstant   = OperationName("ListPullRequests")
	createPullRequestOperationNameConstant  = OperationName("CreatePullRequest")
	editPullRequestOperationNameConstant    = OperationName("EditPullRequest")
	closePullRequestOperationNameConstant   = OperationName("ClosePullRequest")
	releaseNotesOperationNameConstant       = OperationName("ViewReleaseNotes")
	pullRequestURLPrefixConstant            = "https://"
	outputLineSeparatorConstant             = "\n"
)

// OperationName describes a named GitHub CLI workflow supported by the client.
type OperationName string

// PullRequestState describes acceptable GitHub pull request states.
type PullRequestState string

// Pull request state enumerations.
const (
	PullRequestStateOpen   PullRequestState = PullRequestState("open")
	PullRequestStateClosed PullRequestState = PullRequestState("closed")
	PullRequestStateMerged PullRequestState = PullRequestState("merged")
)

// RepositoryMetadata contains key details resolved from GitHub.
type RepositoryMetadata struct {
	NameWithOwner string
	Description   string
	DefaultBranch string
	IsFork        bool
}

// PullRequest represents minimal PR details returned by GitHub CLI.
type PullRequest struct {
	Number      int
	Title       string
	URL         string
	HeadRefName string
}

// PullRequestListOptions configures ListPullRequests queries.
type PullRequestListOptions struct {
	State       PullRequestState
	BaseBranch  string
	TitleSearch string
	ResultLimit int
}

// PullRequestCreateOptions describes a pull request to open.
type PullRequestCreateOptions struct {
	BaseBranch    string
	HeadReference string
	Title         string
	Body          string
}

// PullRequestEditOptions describes the replacement title and body of an existing pull request.
type PullRequestEditOptions struct {
	Number int
	Title  string
	Body   string
}

// GitHubCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type GitHubCommandExecutor interface {
	ExecuteGitHubCLI(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client coordinates GitHub CLI invocations through execshell.
type Client struct {
	executor GitHubCommandExecutor
}

var (
	// ErrExecutorNotConfigured indicates the client was constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for GitHub CLI operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// NewClient constructs a GitHub CLI client.
func NewClient(executor GitHubCommandExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor}, nil
}

// ResolveRepoMetadata retrieves canonical metadata for a repository using gh repo view.
func (client *Client) ResolveRepoMetadata(executionContext context.Context, repository string) (RepositoryMetadata, error) {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return RepositoryMetadata{}, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			repoSubcommandConstant,
			viewSubcommandConstant,
			repositoryIdentifier,
			jsonFlagConstant,
			repoViewJSONFieldsConstant,
		},
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return RepositoryMetadata{}, OperationError{Operation: repositoryMetadataOperationNameConstant, Cause: executionError}
	}

	var response struct {
		NameWithOwner    string `json:"nameWithOwner"`
		Description      string `json:"description"`
		IsFork           bool   `json:"isFork"`
		DefaultBranchRef struct {
			Name string `json:"name"`
		} `json:"defaultBranchRef"`
	}

	decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response)
	if decodingError != nil {
		return RepositoryMetadata{}, ResponseDecodingError{Operation: repositoryMetadataOperationNameConstant, Cause: decodingError}
	}

	return RepositoryMetadata{
		NameWithOwner: response.NameWithOwner,
		Description:   response.Description,
		DefaultBranch: response.DefaultBranchRef.Name,
		IsFork:        response.IsFork,
	}, nil
}

// ResolveAuthenticatedLogin returns the login of the account gh is authenticated as.
func (client *Client) ResolveAuthenticatedLogin(executionContext context.Context) (string, error) {
	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			apiSubcommandConstant,
			authenticatedUserEndpointConstant,
			jqFlagConstant,
			loginQueryConstant,
		},
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return "", OperationError{Operation: authenticatedLoginOperationNameConstant, Cause: executionError}
	}

	login := strings.TrimSpace(executionResult.StandardOutput)
	if len(login) == 0 {
		return "", ResponseDecodingError{Operation: authenticatedLoginOperationNameConstant, Cause: errors.New(emptyResponseMessageConstant)}
	}
	return login, nil
}

// ListPullRequests enumerates pull requests using gh pr list.
func (client *Client) ListPullRequests(executionContext context.Context, repository string, options PullRequestListOptions) ([]PullRequest, error) {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return nil, InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if len(strings.TrimSpace(options.BaseBranch)) == 0 {
		return nil, InvalidInputError{FieldName: baseBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}

	if len(options.State) == 0 {
		return nil, InvalidInputError{FieldName: stateFieldNameConstant, Message: requiredValueMessageConstant}
	}

	resultLimit := options.ResultLimit
	if resultLimit <= 0 {
		resultLimit = pullRequestLimitDefaultValueConstant
	}

	arguments := []string{
		pullRequestSubcommandConstant,
		listSubcommandConstant,
		repoFlagConstant,
		repositoryIdentifier,
		stateFlagConstant,
		string(options.State),
		baseFlagConstant,
		options.BaseBranch,
		jsonFlagConstant,
		pullRequestJSONFieldsConstant,
		limitFlagConstant,
		strconv.Itoa(resultLimit),
	}
	if titleSearch := strings.TrimSpace(options.TitleSearch); len(titleSearch) > 0 {
		arguments = append(arguments, searchFlagConstant, fmt.Sprintf(inTitleSearchTemplateConstant, titleSearch))
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, execshell.CommandDetails{Arguments: arguments})
	if executionError != nil {
		return nil, OperationError{Operation: listPullRequestsOperationNameConstant, Cause: executionError}
	}

	var response []struct {
		Number      int    `json:"number"`
		Title       string `json:"title"`
		URL         string `json:"url"`
		HeadRefName string `json:"headRefName"`
	}

	decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response)
	if decodingError != nil {
		return nil, ResponseDecodingError{Operation: listPullRequestsOperationNameConstant, Cause: decodingError}
	}

	pullRequests := make([]PullRequest, 0, len(response))
	for _, pullRequestEntry := range response {
		pullRequests = append(pullRequests, PullRequest{
			Number:      pullRequestEntry.Number,
			Title:       pullRequestEntry.Title,
			URL:         pullRequestEntry.URL,
			HeadRefName: pullRequestEntry.HeadRefName,
		})
	}

	return pullRequests, nil
}

// CreatePullRequestArguments renders the gh arguments that open a pull request. The body is read from stdin.
func CreatePullRequestArguments(repository string, options PullRequestCreateOptions) []string {
	return []string{
		pullRequestSubcommandConstant,
		createSubcommandConstant,
		repoFlagConstant,
		strings.TrimSpace(repository),
		baseFlagConstant,
		options.BaseBranch,
		headFlagConstant,
		options.HeadReference,
		titleFlagConstant,
		options.Title,
		bodyFileFlagConstant,
		stdinReferenceConstant,
	}
}

// CreatePullRequest opens a pull request using gh pr create and returns its URL.
func (client *Client) CreatePullRequest(executionContext context.Context, repository string, options PullRequestCreateOptions) (string, error) {
	if len(strings.TrimSpace(repository)) == 0 {
		return "", InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(options.BaseBranch)) == 0 {
		return "", InvalidInputError{FieldName: baseBranchFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(options.HeadReference)) == 0 {
		return "", InvalidInputError{FieldName: headReferenceFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(options.Title)) == 0 {
		return "", InvalidInputError{FieldName: titleFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments:     CreatePullRequestArguments(repository, options),
		StandardInput: []byte(options.Body),
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return "", OperationError{Operation: createPullRequestOperationNameConstant, Cause: executionError}
	}

	pullRequestURL := extractPullRequestURL(executionResult.StandardOutput)
	if len(pullRequestURL) == 0 {
		return "", ResponseDecodingError{Operation: createPullRequestOperationNameConstant, Cause: errors.New(emptyResponseMessageConstant)}
	}
	return pullRequestURL, nil
}

// EditPullRequest replaces the title and body of an existing pull request using gh pr edit.
func (client *Client) EditPullRequest(executionContext context.Context, repository string, options PullRequestEditOptions) error {
	if len(strings.TrimSpace(repository)) == 0 {
		return InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if options.Number <= 0 {
		return InvalidInputError{FieldName: pullRequestNumberFieldNameConstant, Message: positiveNumberMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			pullRequestSubcommandConstant,
			editSubcommandConstant,
			strconv.Itoa(options.Number),
			repoFlagConstant,
			strings.TrimSpace(repository),
			titleFlagConstant,
			options.Title,
			bodyFileFlagConstant,
			stdinReferenceConstant,
		},
		StandardInput: []byte(options.Body),
	}

	if _, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails); executionError != nil {
		return OperationError{Operation: editPullRequestOperationNameConstant, Cause: executionError}
	}
	return nil
}

// ClosePullRequest closes a pull request with an explanatory comment using gh pr close.
func (client *Client) ClosePullRequest(executionContext context.Context, repository string, number int, comment string) error {
	if len(strings.TrimSpace(repository)) == 0 {
		return InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if number <= 0 {
		return InvalidInputError{FieldName: pullRequestNumberFieldNameConstant, Message: positiveNumberMessageConstant}
	}

	arguments := []string{
		pullRequestSubcommandConstant,
		closeSubcommandConstant,
		strconv.Itoa(number),
		repoFlagConstant,
		strings.TrimSpace(repository),
	}
	if trimmedComment := strings.TrimSpace(comment); len(trimmedComment) > 0 {
		arguments = append(arguments, commentFlagConstant, trimmedComment)
	}

	if _, executionError := client.executor.ExecuteGitHubCLI(executionContext, execshell.CommandDetails{Arguments: arguments}); executionError != nil {
		return OperationError{Operation: closePullRequestOperationNameConstant, Cause: executionError}
	}
	return nil
}

// ViewReleaseNotes returns the body of a published release using gh release view.
func (client *Client) ViewReleaseNotes(executionContext context.Context, repository string, tag string) (string, error) {
	repositoryIdentifier := strings.TrimSpace(repository)
	if len(repositoryIdentifier) == 0 {
		return "", InvalidInputError{FieldName: repositoryFieldNameConstant, Message: requiredValueMessageConstant}
	}
	releaseTag := strings.TrimSpace(tag)
	if len(releaseTag) == 0 {
		return "", InvalidInputError{FieldName: releaseTagFieldNameConstant, Message: requiredValueMessageConstant}
	}

	commandDetails := execshell.CommandDetails{
		Arguments: []string{
			releaseSubcommandConstant,
			viewSubcommandConstant,
			releaseTag,
			repoFlagConstant,
			repositoryIdentifier,
			jsonFlagConstant,
			releaseViewJSONFieldsConstant,
		},
	}

	executionResult, executionError := client.executor.ExecuteGitHubCLI(executionContext, commandDetails)
	if executionError != nil {
		return "", OperationError{Operation: releaseNotesOperationNameConstant, Cause: executionError}
	}

	var response struct {
		Body string `json:"body"`
	}
	if decodingError := json.Unmarshal([]byte(executionResult.StandardOutput), &response); decodingError != nil {
		return "", ResponseDecodingError{Operation: releaseNotesOperationNameConstant, Cause: decodingError}
	}
	return response.Body, nil
}

// extractPullRequestURL returns the last URL line printed by gh pr create.
func extractPullRequestURL(output string) string {
	outputLines := strings.Split(output, outputLineSeparatorConstant)
	for index := len(outputLines) - 1; index >= 0; index-- {
		trimmedLine := strings.TrimSpace(outputLines[index])
		if strings.HasPrefix(trimmedLine, pullRequestURLPrefixConstant) {
			return trimmedLine
		}
	}
	return ""
}
