package utils

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	environmentLookuperContextKeyConstant   = commandContextKey("environmentLookuper")
)

type commandContextKey string

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	return context.WithValue(ensureContext(parentContext), configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	configurationFilePath, configurationFilePathAvailable := executionContext.Value(configurationFilePathContextKeyConstant).(string)
	return configurationFilePath, configurationFilePathAvailable
}

// WithEnvironmentLookuper replaces the environment commands read secrets from.
func (accessor CommandContextAccessor) WithEnvironmentLookuper(parentContext context.Context, lookuper envconfig.Lookuper) context.Context {
	return context.WithValue(ensureContext(parentContext), environmentLookuperContextKeyConstant, lookuper)
}

// EnvironmentLookuper returns the lookuper attached to the context, or the process environment.
func (accessor CommandContextAccessor) EnvironmentLookuper(executionContext context.Context) envconfig.Lookuper {
	if executionContext != nil {
		if lookuper, lookuperAvailable := executionContext.Value(environmentLookuperContextKeyConstant).(envconfig.Lookuper); lookuperAvailable && lookuper != nil {
			return lookuper
		}
	}
	return envconfig.OsLookuper()
}

func ensureContext(parentContext context.Context) context.Context {
	if parentContext == nil {
		return context.Background()
	}
	return parentContext
}
