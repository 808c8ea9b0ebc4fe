package releasenotes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/npm-node-sync/internal/gitrepo"
)

const (
	// DefaultConcurrency bounds concurrent release note requests.
	DefaultConcurrency = 4

	loggerNotConfiguredMessageConstant = "release notes logger not configured"
	sourceNotConfiguredMessageConstant = "release notes source not configured"
	emptyVersionsMessageConstant       = "no versions to describe"
	fetchNotesErrorTemplateConstant    = "fetch release notes for v%s: %w"
	headerTemplateConstant             = "This updates npm to v%s."
	includedVersionsHeadingConstant    = "Included versions:"
	includedVersionTemplateConstant    = "- [v%s](%s)"
	replacesTemplateConstant           = "Replaces: %s"
	pullRequestReferencePrefixConstant = "#"
	referenceSeparatorConstant         = ", "
	paragraphSeparatorConstant         = "\n\n"
	fetchingNotesLogMessageConstant    = "Fetching release notes"
	emptyNotesLogMessageConstant       = "Release has no notes"
	versionLogFieldConstant            = "version"
	versionCountLogFieldConstant       = "version_count"
)

var (
	// ErrLoggerNotConfigured indicates a nil logger was provided.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrSourceNotConfigured indicates a nil note source was provided.
	ErrSourceNotConfigured = errors.New(sourceNotConfiguredMessageConstant)
	// ErrNoVersions indicates the body request listed no versions.
	ErrNoVersions = errors.New(emptyVersionsMessageConstant)
)

// ServiceDependencies enumerates collaborators required by the aggregator.
type ServiceDependencies struct {
	Logger *zap.Logger
	Source NoteSource
}

// AggregatorOptions configure how notes are fetched and linked.
type AggregatorOptions struct {
	NotesRepository gitrepo.Repository
	Concurrency     int
}

// BodyRequest describes the pull request body to compose.
type BodyRequest struct {
	TargetVersion          string
	Versions               []string
	SupersededPullRequests []int
}

// Aggregator fetches release notes for a version range and composes a pull request body.
type Aggregator struct {
	logger          *zap.Logger
	source          NoteSource
	notesRepository gitrepo.Repository
	concurrency     int
}

// NewAggregator constructs an Aggregator. A non-positive concurrency uses DefaultConcurrency.
func NewAggregator(dependencies ServiceDependencies, options AggregatorOptions) (*Aggregator, error) {
	if dependencies.Logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if dependencies.Source == nil {
		return nil, ErrSourceNotConfigured
	}
	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Aggregator{
		logger:          dependencies.Logger,
		source:          dependencies.Source,
		notesRepository: options.NotesRepository,
		concurrency:     concurrency,
	}, nil
}

// Compose fetches notes for every requested version and renders the pull request body.
func (aggregator *Aggregator) Compose(executionContext context.Context, request BodyRequest) (string, error) {
	if len(request.Versions) == 0 {
		return "", ErrNoVersions
	}

	notes, fetchError := aggregator.fetchAll(executionContext, request.Versions)
	if fetchError != nil {
		return "", fetchError
	}

	sections := []string{fmt.Sprintf(headerTemplateConstant, request.TargetVersion)}

	includedLines := []string{includedVersionsHeadingConstant}
	for _, version := range request.Versions {
		releaseTagURL := aggregator.notesRepository.ReleaseTagURL(fmt.Sprintf(releaseTagTemplateConstant, version))
		includedLines = append(includedLines, fmt.Sprintf(includedVersionTemplateConstant, version, releaseTagURL))
	}
	sections = append(sections, strings.Join(includedLines, lineSeparatorConstant))

	if len(request.SupersededPullRequests) > 0 {
		references := make([]string, 0, len(request.SupersededPullRequests))
		for _, pullRequestNumber := range request.SupersededPullRequests {
			references = append(references, pullRequestReferencePrefixConstant+strconv.Itoa(pullRequestNumber))
		}
		sections = append(sections, fmt.Sprintf(replacesTemplateConstant, strings.Join(references, referenceSeparatorConstant)))
	}

	for index, note := range notes {
		trimmedNote := strings.TrimSpace(note)
		if len(trimmedNote) == 0 {
			aggregator.logger.Debug(emptyNotesLogMessageConstant, zap.String(versionLogFieldConstant, request.Versions[index]))
			continue
		}
		sections = append(sections, RewriteMarkdown(trimmedNote))
	}

	return strings.Join(sections, paragraphSeparatorConstant) + lineSeparatorConstant, nil
}

func (aggregator *Aggregator) fetchAll(executionContext context.Context, versions []string) ([]string, error) {
	aggregator.logger.Info(fetchingNotesLogMessageConstant, zap.Int(versionCountLogFieldConstant, len(versions)))

	notes := make([]string, len(versions))
	group, groupContext := errgroup.WithContext(executionContext)
	group.SetLimit(aggregator.concurrency)
	for index, version := range versions {
		group.Go(func() error {
			note, noteError := aggregator.source.ReleaseNotes(groupContext, version)
			if noteError != nil {
				return fmt.Errorf(fetchNotesErrorTemplateConstant, version, noteError)
			}
			notes[index] = note
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return nil, waitError
	}
	return notes, nil
}
