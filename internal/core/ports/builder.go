package ports

import (
	"context"
	"io"

	"github.com/melih/redeploy/internal/core/domain"
)

// Source locates the build context: a local directory, or a git repository
// cloned into a temporary directory when RepoURL is set.
type Source struct {
	Dir     string
	RepoURL string
	Ref     string
}

// BuildRequest describes one image build.
type BuildRequest struct {
	Tag    string
	Recipe domain.Recipe
	Source Source
	// Dockerfile, when set, names an existing Dockerfile in the context that
	// is used instead of rendering the recipe.
	Dockerfile string
	NoCache    bool
	Labels     map[string]string
	Output     io.Writer
}

// BuildResult is returned by a successful build.
type BuildResult struct {
	ImageID  string `json:"image_id" yaml:"image_id"`
	Tag      string `json:"tag" yaml:"tag"`
	Revision string `json:"revision,omitempty" yaml:"revision,omitempty"`
	Dirty    bool   `json:"dirty" yaml:"dirty"`
}

// BuilderService defines operations for building container images from source code.
type BuilderService interface {
	// BuildImage stages the build context and builds a Docker image from it.
	// Every failure wraps domain.ErrBuildFailed.
	BuildImage(ctx context.Context, req BuildRequest) (*BuildResult, error)
}
