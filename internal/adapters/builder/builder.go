package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/pkg/archive"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/melih/redeploy/internal/core/domain"
	"github.com/melih/redeploy/internal/core/ports"
)

const dockerfileName = "Dockerfile"

// ImageBuilder is the subset of the Docker client used to build images.
type ImageBuilder interface {
	ImageBuild(ctx context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error)
}

// Adapter implements ports.BuilderService with the Docker image build API.
type Adapter struct {
	cli    ImageBuilder
	fs     afero.Fs
	logger *zap.Logger
}

// NewBuilderAdapter creates a builder reading sources from fs.
func NewBuilderAdapter(cli ImageBuilder, fs afero.Fs, logger *zap.Logger) *Adapter {
	return &Adapter{cli: cli, fs: fs, logger: logger}
}

// BuildImage stages the sources and builds a Docker image from them.
func (a *Adapter) BuildImage(ctx context.Context, req ports.BuildRequest) (*ports.BuildResult, error) {
	res, err := a.build(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBuildFailed, err)
	}
	return res, nil
}

func (a *Adapter) build(ctx context.Context, req ports.BuildRequest) (*ports.BuildResult, error) {
	if req.Tag == "" {
		return nil, fmt.Errorf("image tag is required")
	}
	if req.Dockerfile == "" {
		if err := req.Recipe.Validate(); err != nil {
			return nil, fmt.Errorf("invalid recipe: %w", err)
		}
	}

	srcFs, srcDir := a.fs, req.Source.Dir
	if req.Source.RepoURL != "" {
		// 1. Create temporary directory
		tmpDir, err := os.MkdirTemp("", "redeploy-src-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp dir: %w", err)
		}
		defer os.RemoveAll(tmpDir)

		// 2. Clone Repository
		a.logger.Info("cloning sources", zap.String("repo", req.Source.RepoURL), zap.String("ref", req.Source.Ref))
		if err := cloneSource(ctx, tmpDir, req.Source.RepoURL, req.Source.Ref, req.Output); err != nil {
			return nil, fmt.Errorf("failed to clone repo: %w", err)
		}
		srcFs, srcDir = afero.NewOsFs(), tmpDir
	}
	if srcDir == "" {
		srcDir = "."
	}

	rev, dirty, err := revision(srcDir)
	if err != nil {
		a.logger.Warn("could not read source revision", zap.String("dir", srcDir), zap.Error(err))
	}
	labels := map[string]string{domain.LabelManaged: "true"}
	for k, v := range req.Labels {
		labels[k] = v
	}
	if rev != "" {
		labels[domain.LabelRevision] = rev
		labels[domain.LabelDirty] = strconv.FormatBool(dirty)
	}

	// 3. Create Build Context (Tar)
	tar, dockerfile, err := buildContext(srcFs, srcDir, req, labels)
	if err != nil {
		return nil, err
	}
	defer tar.Close()

	// 4. Build Docker Image
	a.logger.Info("building image", zap.String("tag", req.Tag), zap.String("revision", rev), zap.Bool("dirty", dirty))
	resp, err := a.cli.ImageBuild(ctx, tar, types.ImageBuildOptions{
		Tags:        []string{req.Tag},
		Dockerfile:  dockerfile,
		Labels:      labels,
		NoCache:     req.NoCache,
		Remove:      true, // Remove intermediate containers
		ForceRemove: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build image: %w", err)
	}
	defer resp.Body.Close()

	// Wait for build to complete; the stream carries step failures.
	imageID, err := readBuildStream(resp.Body, req.Output)
	if err != nil {
		return nil, err
	}

	a.logger.Info("image built", zap.String("tag", req.Tag), zap.String("id", imageID))
	return &ports.BuildResult{ImageID: imageID, Tag: req.Tag, Revision: rev, Dirty: dirty}, nil
}

// buildContext returns the tar stream sent to the engine and the Dockerfile
// path inside it. A rendered recipe gets a minimal staged context; a user
// Dockerfile gets the whole source tree.
func buildContext(srcFs afero.Fs, srcDir string, req ports.BuildRequest, labels map[string]string) (io.ReadCloser, string, error) {
	if req.Dockerfile != "" {
		if err := checkInputs(srcFs, srcDir, []string{req.Dockerfile}); err != nil {
			return nil, "", err
		}
		excludes, err := contextExcludes(srcFs, srcDir, req.Dockerfile)
		if err != nil {
			return nil, "", err
		}
		tar, err := archive.TarWithOptions(srcDir, &archive.TarOptions{ExcludePatterns: excludes})
		if err != nil {
			return nil, "", fmt.Errorf("failed to create build context: %w", err)
		}
		return tar, req.Dockerfile, nil
	}

	stageDir, err := os.MkdirTemp("", "redeploy-build-*")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create temp dir: %w", err)
	}

	dockerfile := []byte(req.Recipe.Dockerfile(labels))
	if err := stage(srcFs, srcDir, afero.NewOsFs(), stageDir, req.Recipe.Files(), dockerfile); err != nil {
		os.RemoveAll(stageDir)
		return nil, "", err
	}

	tar, err := archive.TarWithOptions(stageDir, &archive.TarOptions{})
	if err != nil {
		os.RemoveAll(stageDir)
		return nil, "", fmt.Errorf("failed to create build context: %w", err)
	}
	return &cleanupReader{ReadCloser: tar, dir: stageDir}, dockerfileName, nil
}

// cleanupReader removes the staging directory once the tar stream is closed.
type cleanupReader struct {
	io.ReadCloser
	dir string
}

func (c *cleanupReader) Close() error {
	err := c.ReadCloser.Close()
	os.RemoveAll(c.dir)
	return err
}
