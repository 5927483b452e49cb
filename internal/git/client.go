package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/mapbuilder/internal/logfields"
)

// Client synchronizes working copies with their remotes.
type Client struct {
	auth   transport.AuthMethod
	logger *slog.Logger
}

// NewClient creates a Client. A nil logger uses slog.Default().
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{logger: logger}
}

// WithToken authenticates HTTPS remotes with an access token (fluent helper).
func (c *Client) WithToken(token string) *Client {
	if token != "" {
		// Most Git hosting services accept any username for token auth
		c.auth = &githttp.BasicAuth{Username: "token", Password: token}
	}
	return c
}

// SyncResult describes the working copy after a successful Sync.
type SyncResult struct {
	// Branch is the checked out branch after the operation.
	Branch string
	// Root is the working tree root.
	Root string
	// Commit is the HEAD commit hash.
	Commit string
	// Previous is the HEAD commit before the update; empty after a fresh clone.
	Previous string
	Cloned   bool
}

// Changed reports whether HEAD moved.
func (r SyncResult) Changed() bool { return r.Cloned || r.Previous != r.Commit }

// Sync clones remoteURL into path when no working copy exists there, otherwise fetches and
// brings the working copy to the tip of branch. An empty branch means the remote default on
// clone and the current branch on update.
func (c *Client) Sync(ctx context.Context, path, remoteURL, branch string) (SyncResult, error) {
	repo, err := git.PlainOpen(path)
	switch {
	case err == nil:
		return c.update(ctx, repo, path, remoteURL, branch)
	case stderrors.Is(err, git.ErrRepositoryNotExists):
		if _, statErr := os.Stat(path); statErr == nil {
			c.logger.Warn("Path exists but is not a git repository, recloning", logfields.Path(path))
			if rmErr := os.RemoveAll(path); rmErr != nil {
				return SyncResult{}, fmt.Errorf("remove stale working copy: %w", rmErr)
			}
		}
		return c.clone(ctx, path, remoteURL, branch)
	default:
		return SyncResult{}, fmt.Errorf("open repo %s: %w", path, err)
	}
}

func (c *Client) clone(ctx context.Context, path, remoteURL, branch string) (SyncResult, error) {
	c.logger.Info("Cloning repository", logfields.URL(remoteURL), logfields.Branch(branch), logfields.Path(path))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return SyncResult{}, fmt.Errorf("create cache directory: %w", err)
	}

	opts := &git.CloneOptions{URL: remoteURL, Auth: c.auth}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	repo, err := git.PlainCloneContext(ctx, path, false, opts)
	if err != nil {
		// never leave a half-written clone behind; the next run would try to update it
		if rmErr := os.RemoveAll(path); rmErr != nil {
			c.logger.Error("Failed to remove partial clone", logfields.Path(path), logfields.Error(rmErr))
		}
		return SyncResult{}, classifyRemoteError("clone", remoteURL, branch, err)
	}

	head, err := repo.Head()
	if err != nil {
		return SyncResult{}, fmt.Errorf("resolve HEAD after clone: %w", err)
	}
	res := SyncResult{
		Branch: head.Name().Short(),
		Root:   path,
		Commit: head.Hash().String(),
		Cloned: true,
	}
	c.logger.Info("Repository cloned successfully",
		logfields.URL(remoteURL), logfields.Branch(res.Branch), logfields.Commit(shortHash(res.Commit)), logfields.Path(path))
	return res, nil
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
