package workflow

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	reportIndentConstant              = 2
	reportEncodeErrorTemplateConstant = "encode run report: %w"
)

// Report summarizes a run.
type Report struct {
	Action             string   `yaml:"action"`
	Package            string   `yaml:"package"`
	Version            string   `yaml:"version"`
	SourceReference    string   `yaml:"source_reference"`
	PreviousVersion    string   `yaml:"previous_version,omitempty"`
	Versions           []string `yaml:"versions"`
	BaseRepository     string   `yaml:"base_repository"`
	BaseBranch         string   `yaml:"base_branch"`
	ForkRepository     string   `yaml:"fork_repository"`
	HeadBranch         string   `yaml:"head_branch"`
	Pushed             bool     `yaml:"pushed"`
	PullRequestURL     string   `yaml:"pull_request_url,omitempty"`
	ClosedPullRequests []int    `yaml:"closed_pull_requests,omitempty"`
	FailedToClose      []int    `yaml:"failed_to_close,omitempty"`
	Command            string   `yaml:"command,omitempty"`
	CompareURL         string   `yaml:"compare_url,omitempty"`
	Commands           []string `yaml:"commands,omitempty"`
}

// WriteReport encodes report as YAML.
func WriteReport(writer io.Writer, report Report) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(reportIndentConstant)
	if encodeError := encoder.Encode(report); encodeError != nil {
		return fmt.Errorf(reportEncodeErrorTemplateConstant, encodeError)
	}
	if closeError := encoder.Close(); closeError != nil {
		return fmt.Errorf(reportEncodeErrorTemplateConstant, closeError)
	}
	return nil
}
