package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// addSimpleCommit writes name (content = name) and commits it.
func addSimpleCommit(t *testing.T, repo *git.Repository, repoPath, name string) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	file := filepath.Join(repoPath, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o750))
	require.NoError(t, os.WriteFile(file, []byte(name), 0o600))
	_, err = wt.Add(name)
	require.NoError(t, err)
	h, err := wt.Commit(name, &git.CommitOptions{Author: &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()}})
	require.NoError(t, err)
	return h
}

// newRemote creates a bare remote seeded with one commit on master and returns
// (barePath, seedRepo, seedPath).
func newRemote(t *testing.T) (string, *git.Repository, string) {
	t.Helper()
	tmp := t.TempDir()
	bare := filepath.Join(tmp, "remote.git")
	_, err := git.PlainInit(bare, true)
	require.NoError(t, err)

	seedPath := filepath.Join(tmp, "seed")
	seed, err := git.PlainInit(seedPath, false)
	require.NoError(t, err)
	_, err = seed.CreateRemote(&ggitcfg.RemoteConfig{Name: "origin", URLs: []string{bare}})
	require.NoError(t, err)

	addSimpleCommit(t, seed, seedPath, "maps/a.dmm")
	require.NoError(t, seed.Push(&git.PushOptions{RemoteName: "origin"}))
	return bare, seed, seedPath
}

func headHash(t *testing.T, repo *git.Repository) string {
	t.Helper()
	h, err := repo.Head()
	require.NoError(t, err)
	return h.Hash().String()
}

func TestSync_ClonesMissingWorkingCopy(t *testing.T) {
	bare, seed, _ := newRemote(t)
	path := filepath.Join(t.TempDir(), "cache", "org", "repo")

	res, err := NewClient(nil).Sync(context.Background(), path, bare, "master")
	require.NoError(t, err)
	require.True(t, res.Cloned)
	require.True(t, res.Changed())
	require.Equal(t, "master", res.Branch)
	require.Equal(t, path, res.Root)
	require.Equal(t, headHash(t, seed), res.Commit)
	require.FileExists(t, filepath.Join(path, "maps", "a.dmm"))
}

func TestSync_CloneWithoutBranchUsesRemoteDefault(t *testing.T) {
	bare, _, _ := newRemote(t)
	path := filepath.Join(t.TempDir(), "wc")

	res, err := NewClient(nil).Sync(context.Background(), path, bare, "")
	require.NoError(t, err)
	require.Equal(t, "master", res.Branch)
}

func TestSync_FastForwardsExistingWorkingCopy(t *testing.T) {
	bare, seed, seedPath := newRemote(t)
	path := filepath.Join(t.TempDir(), "wc")
	c := NewClient(nil)

	first, err := c.Sync(context.Background(), path, bare, "master")
	require.NoError(t, err)

	addSimpleCommit(t, seed, seedPath, "maps/b.dmm")
	require.NoError(t, seed.Push(&git.PushOptions{RemoteName: "origin"}))

	second, err := c.Sync(context.Background(), path, bare, "master")
	require.NoError(t, err)
	require.False(t, second.Cloned)
	require.Equal(t, first.Commit, second.Previous)
	require.Equal(t, headHash(t, seed), second.Commit)
	require.True(t, second.Changed())
	require.FileExists(t, filepath.Join(path, "maps", "b.dmm"))

	// unchanged remote: no movement
	third, err := c.Sync(context.Background(), path, bare, "")
	require.NoError(t, err)
	require.Equal(t, "master", third.Branch)
	require.False(t, third.Changed())
}

func TestSync_HardResetsDivergedBranch(t *testing.T) {
	bare, seed, seedPath := newRemote(t)
	path := filepath.Join(t.TempDir(), "wc")
	c := NewClient(nil)

	_, err := c.Sync(context.Background(), path, bare, "master")
	require.NoError(t, err)

	local, err := git.PlainOpen(path)
	require.NoError(t, err)
	addSimpleCommit(t, local, path, "local-only.txt")

	addSimpleCommit(t, seed, seedPath, "maps/c.dmm")
	require.NoError(t, seed.Push(&git.PushOptions{RemoteName: "origin"}))

	res, err := c.Sync(context.Background(), path, bare, "master")
	require.NoError(t, err)
	require.Equal(t, headHash(t, seed), res.Commit)
	require.NoFileExists(t, filepath.Join(path, "local-only.txt"))
	require.FileExists(t, filepath.Join(path, "maps", "c.dmm"))
}

func TestSync_ChecksOutOtherRemoteBranch(t *testing.T) {
	bare, seed, seedPath := newRemote(t)
	path := filepath.Join(t.TempDir(), "wc")
	c := NewClient(nil)

	_, err := c.Sync(context.Background(), path, bare, "master")
	require.NoError(t, err)

	wt, err := seed.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName("dev"), Create: true}))
	devHead := addSimpleCommit(t, seed, seedPath, "maps/dev.dmm")
	require.NoError(t, seed.Push(&git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []ggitcfg.RefSpec{"refs/heads/dev:refs/heads/dev"},
	}))

	res, err := c.Sync(context.Background(), path, bare, "dev")
	require.NoError(t, err)
	require.Equal(t, "dev", res.Branch)
	require.Equal(t, devHead.String(), res.Commit)
	require.FileExists(t, filepath.Join(path, "maps", "dev.dmm"))

	// switching back removes the dev-only file
	res, err = c.Sync(context.Background(), path, bare, "master")
	require.NoError(t, err)
	require.Equal(t, "master", res.Branch)
	require.NoFileExists(t, filepath.Join(path, "maps", "dev.dmm"))
}

func TestSync_UnknownBranchOnUpdate(t *testing.T) {
	bare, _, _ := newRemote(t)
	path := filepath.Join(t.TempDir(), "wc")
	c := NewClient(nil)

	_, err := c.Sync(context.Background(), path, bare, "master")
	require.NoError(t, err)

	_, err = c.Sync(context.Background(), path, bare, "does-not-exist")
	require.Error(t, err)
	require.True(t, IsBranchNotFound(err), "got %T: %v", err, err)
	require.False(t, IsTransient(err))
}

func TestSync_UnknownBranchOnCloneRemovesPartialClone(t *testing.T) {
	bare, _, _ := newRemote(t)
	path := filepath.Join(t.TempDir(), "wc")

	_, err := NewClient(nil).Sync(context.Background(), path, bare, "does-not-exist")
	require.Error(t, err)
	require.True(t, IsBranchNotFound(err), "got %T: %v", err, err)
	require.NoDirExists(t, path)
}

func TestSync_MissingRemoteRemovesPartialClone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wc")
	missing := filepath.Join(t.TempDir(), "nope.git")

	_, err := NewClient(nil).Sync(context.Background(), path, missing, "master")
	require.Error(t, err)
	require.NoDirExists(t, path)
}

func TestSync_ReplacesNonRepositoryDirectory(t *testing.T) {
	bare, _, _ := newRemote(t)
	path := filepath.Join(t.TempDir(), "wc")
	require.NoError(t, os.MkdirAll(path, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(path, "junk"), []byte("x"), 0o600))

	res, err := NewClient(nil).Sync(context.Background(), path, bare, "master")
	require.NoError(t, err)
	require.True(t, res.Cloned)
	require.NoFileExists(t, filepath.Join(path, "junk"))
}
