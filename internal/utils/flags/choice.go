package flags

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const (
	choicePlaceholderPrefixConstant  = "<"
	choicePlaceholderSuffixConstant  = ">"
	choiceSeparatorConstant          = "|"
	choiceUsageEmptyTemplateConstant = "`%s`"
	choiceUsageFullTemplateConstant  = "`%s` %s"
	choiceTypeNameConstant           = "choice"
	invalidChoiceTemplateConstant    = "invalid value %q (expected one of %s)"
	choiceListSeparatorConstant      = ", "
)

// FormatChoiceUsage builds a usage string where the default option is capitalized inside a placeholder.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	placeholder := choicePlaceholderPrefixConstant + strings.Join(highlightDefaultChoice(defaultChoice, choices), choiceSeparatorConstant) + choicePlaceholderSuffixConstant
	if len(strings.TrimSpace(description)) == 0 {
		return fmt.Sprintf(choiceUsageEmptyTemplateConstant, placeholder)
	}
	return fmt.Sprintf(choiceUsageFullTemplateConstant, placeholder, description)
}

// ChoiceValue is a pflag.Value restricted to a fixed, case-insensitive set of strings.
type ChoiceValue struct {
	target  *string
	choices []string
}

// NewChoiceValue stores defaultChoice in target and returns a value accepting only choices.
func NewChoiceValue(target *string, defaultChoice string, choices []string) *ChoiceValue {
	*target = defaultChoice
	return &ChoiceValue{target: target, choices: uniqueChoices(choices)}
}

// AddChoiceFlag registers a choice flag whose usage lists the accepted values.
func AddChoiceFlag(flagSet *pflag.FlagSet, target *string, name string, defaultChoice string, choices []string, description string) {
	if flagSet == nil || len(name) == 0 {
		return
	}
	flagSet.Var(NewChoiceValue(target, defaultChoice, choices), name, FormatChoiceUsage(defaultChoice, choices, description))
}

// String returns the current value.
func (value *ChoiceValue) String() string {
	if value == nil || value.target == nil {
		return ""
	}
	return *value.target
}

// Set accepts candidate when it matches one of the choices, ignoring case and surrounding space.
func (value *ChoiceValue) Set(candidate string) error {
	normalizedCandidate := strings.ToLower(strings.TrimSpace(candidate))
	for _, choice := range value.choices {
		if strings.ToLower(choice) == normalizedCandidate {
			*value.target = choice
			return nil
		}
	}
	return fmt.Errorf(invalidChoiceTemplateConstant, candidate, strings.Join(value.choices, choiceListSeparatorConstant))
}

// Type names the flag value type in help output.
func (value *ChoiceValue) Type() string {
	return choiceTypeNameConstant
}

func highlightDefaultChoice(defaultChoice string, choices []string) []string {
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))
	highlighted := uniqueChoices(choices)
	for index, choice := range highlighted {
		if strings.ToLower(choice) == normalizedDefault {
			highlighted[index] = strings.ToUpper(choice)
		}
	}
	return highlighted
}

func uniqueChoices(choices []string) []string {
	unique := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		trimmedChoice := strings.TrimSpace(choice)
		if len(trimmedChoice) == 0 {
			continue
		}
		normalizedChoice := strings.ToLower(trimmedChoice)
		if _, exists := seen[normalizedChoice]; exists {
			continue
		}
		seen[normalizedChoice] = struct{}{}
		unique = append(unique, trimmedChoice)
	}
	return unique
}
