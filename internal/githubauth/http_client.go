package githubauth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// NewAuthenticatedHTTPClient returns an HTTP client that sends the token as a bearer credential.
func NewAuthenticatedHTTPClient(executionContext context.Context, token string) *http.Client {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return oauth2.NewClient(executionContext, tokenSource)
}
