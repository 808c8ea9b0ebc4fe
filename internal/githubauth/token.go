package githubauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Environment variable names used by GitHub authentication helpers.
const (
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

const (
	missingTokenMessageConstant          = "github token not found: set GITHUB_TOKEN, GH_TOKEN or GITHUB_API_TOKEN"
	environmentLoadErrorTemplateConstant = "load github token environment: %w"
)

// ErrTokenNotFound indicates none of the supported environment variables carried a token.
var ErrTokenNotFound = errors.New(missingTokenMessageConstant)

// TokenEnvironment lists the variables that may carry the token, in order of preference.
type TokenEnvironment struct {
	GitHubToken    string `env:"GITHUB_TOKEN"`
	GitHubCLIToken string `env:"GH_TOKEN"`
	GitHubAPIToken string `env:"GITHUB_API_TOKEN"`
}

// Token returns the first non-blank token.
func (environment TokenEnvironment) Token() (string, bool) {
	for _, candidate := range []string{environment.GitHubToken, environment.GitHubCLIToken, environment.GitHubAPIToken} {
		trimmedCandidate := strings.TrimSpace(candidate)
		if len(trimmedCandidate) > 0 {
			return trimmedCandidate, true
		}
	}
	return "", false
}

// LoadToken reads the token environment through the lookuper. A nil lookuper reads the process environment.
func LoadToken(executionContext context.Context, lookuper envconfig.Lookuper) (string, error) {
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}

	var environment TokenEnvironment
	if processError := envconfig.ProcessWith(executionContext, &envconfig.Config{Target: &environment, Lookuper: lookuper}); processError != nil {
		return "", fmt.Errorf(environmentLoadErrorTemplateConstant, processError)
	}

	token, found := environment.Token()
	if !found {
		return "", ErrTokenNotFound
	}
	return token, nil
}
