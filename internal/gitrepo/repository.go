package gitrepo

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	sshProtocolPrefixConstant            = "ssh://"
	sshUserDelimiterConstant             = "@"
	sshPathDelimiterConstant             = ":"
	httpsProtocolPrefixConstant          = "https://"
	gitUserPrefixConstant                = "git@"
	pathSeparatorConstant                = "/"
	gitSuffixConstant                    = ".git"
	defaultHostConstant                  = "github.com"
	repositoryParseErrorTemplateConstant = "%s: %s"
	invalidRepositoryMessageConstant     = "expected owner/name or a git remote url"
	requiredValueMessageConstant         = "value required"
	fullNameTemplateConstant             = "%s/%s"
	tokenRemoteURLTemplateConstant       = "https://%s@%s/%s/%s"
	compareURLTemplateConstant           = "https://%s/%s/%s/compare/%s...%s:%s:%s?expand=1"
	releaseTagURLTemplateConstant        = "https://%s/%s/%s/releases/tag/%s"
)

// Repository identifies a hosted repository.
type Repository struct {
	Host  string
	Owner string
	Name  string
}

// RepositoryParseError indicates a repository identifier could not be parsed.
type RepositoryParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RepositoryParseError) Error() string {
	return fmt.Sprintf(repositoryParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// ParseRepository accepts owner/name, https remotes and ssh remotes. The host defaults to github.com.
func ParseRepository(identifier string) (Repository, error) {
	trimmedIdentifier := strings.TrimSpace(identifier)
	if len(trimmedIdentifier) == 0 {
		return Repository{}, RepositoryParseError{Input: identifier, Message: requiredValueMessageConstant}
	}

	switch {
	case strings.HasPrefix(trimmedIdentifier, sshProtocolPrefixConstant):
		return parseSSHRemote(strings.TrimPrefix(trimmedIdentifier, sshProtocolPrefixConstant))
	case strings.HasPrefix(trimmedIdentifier, gitUserPrefixConstant):
		return parseSSHRemote(trimmedIdentifier)
	case strings.HasPrefix(trimmedIdentifier, httpsProtocolPrefixConstant):
		return parseHTTPSRemote(trimmedIdentifier)
	}

	owner, name, parseError := splitOwnerAndName(trimmedIdentifier)
	if parseError != nil {
		return Repository{}, parseError
	}
	return Repository{Host: defaultHostConstant, Owner: owner, Name: name}, nil
}

// FullName returns owner/name.
func (repository Repository) FullName() string {
	return fmt.Sprintf(fullNameTemplateConstant, repository.Owner, repository.Name)
}

// String implements fmt.Stringer.
func (repository Repository) String() string {
	return repository.FullName()
}

// TokenRemoteURL formats an https remote that authenticates with the provided token.
func (repository Repository) TokenRemoteURL(token string) string {
	return fmt.Sprintf(tokenRemoteURLTemplateConstant, url.PathEscape(strings.TrimSpace(token)), repository.hostOrDefault(), repository.Owner, repository.Name)
}

// CompareURL formats the page that previews a pull request from fork:headBranch into baseBranch.
func (repository Repository) CompareURL(baseBranch string, fork Repository, headBranch string) string {
	return fmt.Sprintf(compareURLTemplateConstant, repository.hostOrDefault(), repository.Owner, repository.Name, baseBranch, fork.Owner, fork.Name, headBranch)
}

// ReleaseTagURL formats the release page for a tag.
func (repository Repository) ReleaseTagURL(tag string) string {
	return fmt.Sprintf(releaseTagURLTemplateConstant, repository.hostOrDefault(), repository.Owner, repository.Name, tag)
}

func (repository Repository) hostOrDefault() string {
	if len(strings.TrimSpace(repository.Host)) == 0 {
		return defaultHostConstant
	}
	return repository.Host
}

func parseSSHRemote(remote string) (Repository, error) {
	userSplitIndex := strings.Index(remote, sshUserDelimiterConstant)
	if userSplitIndex == -1 {
		return Repository{}, RepositoryParseError{Input: remote, Message: invalidRepositoryMessageConstant}
	}
	hostAndPath := remote[userSplitIndex+1:]
	pathSplitIndex := strings.Index(hostAndPath, sshPathDelimiterConstant)
	var host string
	var path string
	if pathSplitIndex == -1 {
		slashIndex := strings.Index(hostAndPath, pathSeparatorConstant)
		if slashIndex == -1 {
			return Repository{}, RepositoryParseError{Input: remote, Message: invalidRepositoryMessageConstant}
		}
		host = hostAndPath[:slashIndex]
		path = hostAndPath[slashIndex+1:]
	} else {
		host = hostAndPath[:pathSplitIndex]
		path = hostAndPath[pathSplitIndex+1:]
	}
	owner, name, parseError := splitOwnerAndName(path)
	if parseError != nil {
		return Repository{}, parseError
	}
	return Repository{Host: host, Owner: owner, Name: name}, nil
}

func parseHTTPSRemote(remote string) (Repository, error) {
	parsedURL, parseError := url.Parse(remote)
	if parseError != nil || len(parsedURL.Host) == 0 {
		return Repository{}, RepositoryParseError{Input: remote, Message: invalidRepositoryMessageConstant}
	}
	owner, name, splitError := splitOwnerAndName(strings.Trim(parsedURL.Path, pathSeparatorConstant))
	if splitError != nil {
		return Repository{}, splitError
	}
	return Repository{Host: parsedURL.Host, Owner: owner, Name: name}, nil
}

func splitOwnerAndName(path string) (string, string, error) {
	segments := strings.Split(path, pathSeparatorConstant)
	if len(segments) != 2 || len(segments[0]) == 0 {
		return "", "", RepositoryParseError{Input: path, Message: invalidRepositoryMessageConstant}
	}
	name := strings.TrimSuffix(segments[1], gitSuffixConstant)
	if len(name) == 0 {
		return "", "", RepositoryParseError{Input: path, Message: invalidRepositoryMessageConstant}
	}
	return segments[0], name, nil
}
