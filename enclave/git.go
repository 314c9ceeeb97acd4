package enclave

import (
	"context"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Repository is a git checkout inside an enclave, used to submit a model file
// straight from a repository instead of a local path.
type Repository struct {
	URL     string
	Commit  string
	Enclave *Enclave

	dir      string
	repo     *git.Repository
	workTree *git.Worktree
}

func NewRepository(e *Enclave, url string) *Repository {
	return &Repository{URL: url, Enclave: e}
}

// Clone clones the default branch into the "repo" directory of the enclave.
func (r *Repository) Clone(ctx context.Context) (err error) {
	r.dir, err = r.Enclave.AddDir("repo")
	if err != nil {
		return err
	}
	r.repo, err = git.PlainCloneContext(ctx, r.dir, false, &git.CloneOptions{
		URL: r.URL,
	})
	if err != nil {
		return fmt.Errorf("could not clone %s: %w", r.URL, err)
	}
	r.workTree, err = r.repo.Worktree()
	return err
}

// Checkout selects an earlier commit. The revision may be a full or
// abbreviated hash, a branch or a tag. By default the head of the default
// branch is used.
func (r *Repository) Checkout(commit string) error {
	if r.workTree == nil {
		return fmt.Errorf("repository %s has not been cloned", r.URL)
	}
	h, err := r.repo.ResolveRevision(plumbing.Revision(commit))
	if err != nil {
		return fmt.Errorf("could not resolve %s: %w", commit, err)
	}
	if err = r.workTree.Checkout(&git.CheckoutOptions{Hash: *h}); err != nil {
		return err
	}
	r.Commit = h.String()
	return nil
}

// ReadFile reads a file relative to the repository root.
func (r *Repository) ReadFile(name string) ([]byte, error) {
	if r.dir == "" {
		return nil, fmt.Errorf("repository %s has not been cloned", r.URL)
	}
	p, err := r.Enclave.Path("repo", name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}
