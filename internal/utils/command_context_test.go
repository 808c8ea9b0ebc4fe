package utils_test

import (
	"context"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/require"

	"github.com/temirov/npm-node-sync/internal/utils"
)

func TestCommandContextAccessor(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	_, pathAvailable := accessor.ConfigurationFilePath(context.Background())
	require.False(testInstance, pathAvailable)

	executionContext := accessor.WithConfigurationFilePath(context.Background(), "/etc/npm-node-sync/config.yaml")
	configurationFilePath, pathAvailable := accessor.ConfigurationFilePath(executionContext)
	require.True(testInstance, pathAvailable)
	require.Equal(testInstance, "/etc/npm-node-sync/config.yaml", configurationFilePath)

	executionContext = accessor.WithEnvironmentLookuper(executionContext, envconfig.MapLookuper(map[string]string{"GITHUB_TOKEN": "ghp_context"}))
	token, tokenFound := accessor.EnvironmentLookuper(executionContext).Lookup("GITHUB_TOKEN")
	require.True(testInstance, tokenFound)
	require.Equal(testInstance, "ghp_context", token)

	testInstance.Setenv("NPMNODESYNC_CONTEXT_TEST", "process")
	processValue, processFound := accessor.EnvironmentLookuper(context.Background()).Lookup("NPMNODESYNC_CONTEXT_TEST")
	require.True(testInstance, processFound)
	require.Equal(testInstance, "process", processValue)
}
