package workflow

import (
	"fmt"

	"github.com/temirov/npm-node-sync/internal/gitrepo"
	"github.com/temirov/npm-node-sync/internal/pullrequests"
)

const (
	headTagTemplateConstant    = "v%s"
	headBranchTemplateConstant = "npm-v%s"
)

// BaseDescriptor identifies the repository and branch the update targets.
type BaseDescriptor struct {
	Repository gitrepo.Repository
	Remote     string
	Branch     string
}

// HeadDescriptor identifies the branch that carries the update and where it is pushed.
type HeadDescriptor struct {
	Version        string
	Tag            string
	Branch         string
	Message        string
	ForkRepository gitrepo.Repository
	RemoteName     string
	RemoteURL      string
}

// NewHeadDescriptor derives the head branch, tag and message for version. The remote URL embeds token.
func NewHeadDescriptor(version string, forkRepository gitrepo.Repository, token string) HeadDescriptor {
	return HeadDescriptor{
		Version:        version,
		Tag:            fmt.Sprintf(headTagTemplateConstant, version),
		Branch:         fmt.Sprintf(headBranchTemplateConstant, version),
		Message:        pullrequests.Title(version),
		ForkRepository: forkRepository,
		RemoteName:     forkRepository.Owner,
		RemoteURL:      forkRepository.TokenRemoteURL(token),
	}
}

func pullRequestTarget(base BaseDescriptor, head HeadDescriptor) pullrequests.Target {
	return pullrequests.Target{
		BaseRepository: base.Repository,
		BaseBranch:     base.Branch,
		ForkRepository: head.ForkRepository,
		HeadBranch:     head.Branch,
		TargetVersion:  head.Version,
	}
}
