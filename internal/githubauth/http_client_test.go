package githubauth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/npm-node-sync/internal/githubauth"
)

func TestNewAuthenticatedHTTPClientSendsBearerToken(testInstance *testing.T) {
	receivedAuthorization := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		receivedAuthorization <- request.Header.Get("Authorization")
		responseWriter.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	httpClient := githubauth.NewAuthenticatedHTTPClient(context.Background(), "ghp_example")
	response, requestError := httpClient.Get(server.URL)
	require.NoError(testInstance, requestError)
	require.NoError(testInstance, response.Body.Close())

	require.Equal(testInstance, "Bearer ghp_example", <-receivedAuthorization)
}
