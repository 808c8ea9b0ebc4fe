package execshell

import (
	"sort"
	"strings"
)

const redactedPlaceholderConstant = "***"

// SecretRedactor replaces known secret values with a fixed placeholder.
type SecretRedactor struct {
	secrets []string
}

// NewSecretRedactor constructs a redactor for the provided secrets. Blank values are ignored.
func NewSecretRedactor(secrets ...string) *SecretRedactor {
	redactor := &SecretRedactor{}
	for _, secret := range secrets {
		redactor.Add(secret)
	}
	return redactor
}

// Add registers another secret value.
func (redactor *SecretRedactor) Add(secret string) {
	if redactor == nil {
		return
	}
	trimmedSecret := strings.TrimSpace(secret)
	if len(trimmedSecret) == 0 {
		return
	}
	for _, existingSecret := range redactor.secrets {
		if existingSecret == trimmedSecret {
			return
		}
	}
	redactor.secrets = append(redactor.secrets, trimmedSecret)
	// longer secrets first so a secret containing another is masked whole
	sort.SliceStable(redactor.secrets, func(leftIndex int, rightIndex int) bool {
		return len(redactor.secrets[leftIndex]) > len(redactor.secrets[rightIndex])
	})
}

// Redact masks every registered secret in text.
func (redactor *SecretRedactor) Redact(text string) string {
	if redactor == nil || len(text) == 0 {
		return text
	}
	redactedText := text
	for _, secret := range redactor.secrets {
		redactedText = strings.ReplaceAll(redactedText, secret, redactedPlaceholderConstant)
	}
	return redactedText
}

// RedactError wraps failure so its message is masked while errors.Is and errors.As still reach
// the original cause.
func (redactor *SecretRedactor) RedactError(failure error) error {
	if failure == nil {
		return nil
	}
	return redactedError{message: redactor.Redact(failure.Error()), cause: failure}
}

type redactedError struct {
	message string
	cause   error
}

func (failure redactedError) Error() string {
	return failure.message
}

func (failure redactedError) Unwrap() error {
	return failure.cause
}

// RedactCommand returns a copy of command with secrets masked in arguments and environment values.
func (redactor *SecretRedactor) RedactCommand(command ShellCommand) ShellCommand {
	redactedCommand := command
	redactedCommand.Details.Arguments = make([]string, 0, len(command.Details.Arguments))
	for _, argument := range command.Details.Arguments {
		redactedCommand.Details.Arguments = append(redactedCommand.Details.Arguments, redactor.Redact(argument))
	}
	if len(command.Details.EnvironmentVariables) > 0 {
		redactedCommand.Details.EnvironmentVariables = make(map[string]string, len(command.Details.EnvironmentVariables))
		for environmentKey, environmentValue := range command.Details.EnvironmentVariables {
			redactedCommand.Details.EnvironmentVariables[environmentKey] = redactor.Redact(environmentValue)
		}
	}
	redactedCommand.Details.StandardInput = nil
	return redactedCommand
}

// RedactResult returns a copy of result with secrets masked in both output streams.
func (redactor *SecretRedactor) RedactResult(result ExecutionResult) ExecutionResult {
	return ExecutionResult{
		StandardOutput: redactor.Redact(result.StandardOutput),
		StandardError:  redactor.Redact(result.StandardError),
		ExitCode:       result.ExitCode,
	}
}
