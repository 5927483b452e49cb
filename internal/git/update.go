package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/mapbuilder/internal/logfields"
)

func (c *Client) update(ctx context.Context, repo *git.Repository, path, remoteURL, branch string) (SyncResult, error) {
	c.logger.Info("Updating repository", logfields.Path(path), logfields.Branch(branch))

	wt, err := repo.Worktree()
	if err != nil {
		return SyncResult{}, fmt.Errorf("worktree: %w", err)
	}

	var previous string
	if head, herr := repo.Head(); herr == nil {
		previous = head.Hash().String()
	}

	// 1. Fetch every configured remote
	if err := c.fetchAll(ctx, repo, remoteURL); err != nil {
		return SyncResult{}, err
	}

	// 2. Resolve target branch and its tracking ref
	target, remoteName, err := resolveTargetBranch(repo, branch)
	if err != nil {
		return SyncResult{}, err
	}

	// 3. Checkout/create local branch & obtain refs
	localRef, remoteRef, err := checkoutAndGetRefs(repo, wt, target, remoteName)
	if err != nil {
		if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
			return SyncResult{}, &BranchNotFoundError{Op: "update", URL: remoteURL, Branch: target, Err: err}
		}
		return SyncResult{}, err
	}

	// 4. Move to the remote tip
	if err := c.syncWithRemote(repo, wt, target, localRef, remoteRef); err != nil {
		return SyncResult{}, err
	}

	res := SyncResult{Branch: target, Root: path, Commit: remoteRef.Hash().String(), Previous: previous}
	c.logger.Info("Repository updated",
		logfields.Branch(target), logfields.Commit(shortHash(res.Commit)), logfields.Path(path))
	return res, nil
}

// fetchAll fetches branch heads from every configured remote.
func (c *Client) fetchAll(ctx context.Context, repo *git.Repository, remoteURL string) error {
	remotes, err := repo.Remotes()
	if err != nil {
		return fmt.Errorf("list remotes: %w", err)
	}
	for _, r := range remotes {
		name := r.Config().Name
		refSpec := ggitcfg.RefSpec(fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", name))
		err := repo.FetchContext(ctx, &git.FetchOptions{
			RemoteName: name,
			RefSpecs:   []ggitcfg.RefSpec{refSpec},
			Tags:       git.NoTags,
			Auth:       c.auth,
			Force:      true,
		})
		if err != nil && !stderrors.Is(err, git.NoErrAlreadyUpToDate) {
			return classifyRemoteError("fetch", remoteURL, "", err)
		}
	}
	return nil
}

// resolveTargetBranch determines the branch to update and the remote tracking it:
// 1. explicit branch on origin, 2. current HEAD branch with its configured upstream,
// 3. remote default branch.
func resolveTargetBranch(repo *git.Repository, branch string) (string, string, error) {
	if branch != "" {
		return branch, "origin", nil
	}
	if headRef, err := repo.Head(); err == nil && headRef.Name().IsBranch() {
		name := headRef.Name().Short()
		remote := "origin"
		if bcfg, berr := repo.Branch(name); berr == nil && bcfg.Remote != "" {
			remote = bcfg.Remote
			if bcfg.Merge.IsBranch() {
				name = bcfg.Merge.Short()
			}
		}
		return name, remote, nil
	}
	if def, err := resolveRemoteDefaultBranch(repo); err == nil && def != "" {
		return def, "origin", nil
	}
	return "", "", fmt.Errorf("cannot determine branch: HEAD is detached and origin/HEAD is unset")
}

// checkoutAndGetRefs ensures the local branch exists and is checked out, returning both local
// and remote references. A missing remote branch returns plumbing.ErrReferenceNotFound.
func checkoutAndGetRefs(repo *git.Repository, wt *git.Worktree, branch, remote string) (localRef, remoteRef *plumbing.Reference, err error) {
	localBranchRef := plumbing.NewBranchReferenceName(branch)
	remoteRef, err = repo.Reference(plumbing.NewRemoteReferenceName(remote, branch), true)
	if err != nil {
		return nil, nil, fmt.Errorf("remote ref %s/%s: %w", remote, branch, err)
	}

	localRef, lerr := repo.Reference(localBranchRef, true)
	if lerr != nil { // create local branch at the remote tip
		if err = wt.Checkout(&git.CheckoutOptions{Branch: localBranchRef, Hash: remoteRef.Hash(), Create: true, Force: true}); err != nil {
			return nil, nil, fmt.Errorf("checkout new branch: %w", err)
		}
		berr := repo.CreateBranch(&ggitcfg.Branch{Name: branch, Remote: remote, Merge: localBranchRef})
		if berr != nil && !stderrors.Is(berr, git.ErrBranchExists) {
			return nil, nil, fmt.Errorf("configure upstream: %w", berr)
		}
		localRef, err = repo.Reference(localBranchRef, true)
		if err != nil {
			return nil, nil, fmt.Errorf("local ref: %w", err)
		}
		return localRef, remoteRef, nil
	}

	if err = wt.Checkout(&git.CheckoutOptions{Branch: localBranchRef, Force: true}); err != nil {
		return nil, nil, fmt.Errorf("checkout existing branch: %w", err)
	}
	return localRef, remoteRef, nil
}

// syncWithRemote moves the local branch to the remote tip. A diverged local branch is
// hard-reset since working copies are never edited locally.
func (c *Client) syncWithRemote(repo *git.Repository, wt *git.Worktree, branch string, localRef, remoteRef *plumbing.Reference) error {
	fastForward, ffErr := isAncestor(repo, localRef.Hash(), remoteRef.Hash())
	if ffErr != nil {
		c.logger.Warn("Ancestor check failed", logfields.Error(ffErr))
	}

	switch {
	case localRef.Hash() == remoteRef.Hash():
		c.logger.Debug("Repository already up-to-date", logfields.Branch(branch), logfields.Commit(shortHash(remoteRef.Hash().String())))
	case fastForward:
		c.logger.Info("Fast-forwarding repository", logfields.Branch(branch),
			slog.String("from", shortHash(localRef.Hash().String())), slog.String("to", shortHash(remoteRef.Hash().String())))
	default:
		c.logger.Warn("Local branch diverged from remote, hard resetting", logfields.Branch(branch),
			slog.String("local", shortHash(localRef.Hash().String())), slog.String("remote", shortHash(remoteRef.Hash().String())))
	}

	if err := wt.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset}); err != nil {
		return fmt.Errorf("reset to %s: %w", remoteRef.Name().Short(), err)
	}
	return nil
}

func resolveRemoteDefaultBranch(repo *git.Repository) (string, error) {
	ref, err := repo.Reference(plumbing.ReferenceName("refs/remotes/origin/HEAD"), true)
	if err != nil {
		return "", err
	}
	name := ref.Name()
	if !name.IsRemote() || name == "refs/remotes/origin/HEAD" {
		return "", fmt.Errorf("origin/HEAD target empty")
	}
	return strings.TrimPrefix(name.Short(), "origin/"), nil
}

func isAncestor(repo *git.Repository, a, b plumbing.Hash) (bool, error) {
	if a == b {
		return true, nil
	}
	seen := map[plumbing.Hash]struct{}{}
	queue := []plumbing.Hash{b}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if h == a {
			return true, nil
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		commit, err := repo.CommitObject(h)
		if err != nil {
			return false, err
		}
		queue = append(queue, commit.ParentHashes...)
	}
	return false, nil
}
