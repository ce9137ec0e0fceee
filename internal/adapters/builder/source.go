package builder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// cloneSource clones repoURL into dir. ref may name a branch or a tag; empty
// means the remote HEAD.
func cloneSource(ctx context.Context, dir, repoURL, ref string, progress io.Writer) error {
	opts := &git.CloneOptions{
		URL:          repoURL,
		Progress:     progress,
		Depth:        1, // Shallow clone for speed
		SingleBranch: true,
	}
	if ref == "" {
		_, err := git.PlainCloneContext(ctx, dir, false, opts)
		return err
	}

	opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
	_, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err == nil {
		return nil
	}
	// retry as a tag
	opts.ReferenceName = plumbing.NewTagReferenceName(ref)
	if _, tagErr := git.PlainCloneContext(ctx, dir, false, opts); tagErr != nil {
		return fmt.Errorf("ref %q is neither a branch nor a tag: %w", ref, errors.Join(err, tagErr))
	}
	return nil
}

// revision returns the HEAD commit of the repository containing dir and
// whether its worktree has uncommitted changes. A directory outside any
// repository yields an empty revision.
func revision(dir string) (string, bool, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	head, err := repo.Head()
	if err != nil {
		// empty repository, nothing committed yet
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", true, nil
		}
		return "", false, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return head.Hash().String(), false, nil
	}
	status, err := wt.Status()
	if err != nil {
		return head.Hash().String(), false, nil
	}
	return head.Hash().String(), !status.IsClean(), nil
}
