package git

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
)

func TestClassifyRemoteError(t *testing.T) {
	url := "https://example.com/org/repo.git"

	var authErr *AuthError
	require.ErrorAs(t, classifyRemoteError("clone", url, "", transport.ErrAuthenticationRequired), &authErr)

	var nfErr *NotFoundError
	require.ErrorAs(t, classifyRemoteError("clone", url, "", transport.ErrRepositoryNotFound), &nfErr)

	var brErr *BranchNotFoundError
	require.ErrorAs(t, classifyRemoteError("clone", url, "dev", plumbing.ErrReferenceNotFound), &brErr)
	require.Equal(t, "dev", brErr.Branch)

	require.True(t, IsTransient(classifyRemoteError("fetch", url, "", errors.New("read tcp: i/o timeout"))))
	require.True(t, IsTransient(classifyRemoteError("fetch", url, "", errors.New("dial tcp: connection refused"))))

	var protoErr *UnsupportedProtocolError
	require.ErrorAs(t, classifyRemoteError("clone", url, "", errors.New("unsupported protocol scheme")), &protoErr)

	plain := classifyRemoteError("clone", url, "", errors.New("object corrupt"))
	require.False(t, IsTransient(plain))
	require.False(t, IsBranchNotFound(plain))
	require.NoError(t, classifyRemoteError("clone", url, "", nil))
}

func TestClassifyGitError(t *testing.T) {
	url := "file:///tmp/x"

	err := ClassifyGitError(&TransientError{Op: "fetch", URL: url, Err: errors.New("timeout")}, "sync", url)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryNetwork))
	c, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	require.True(t, c.CanRetry())

	err = ClassifyGitError(fmt.Errorf("wrap: %w", &BranchNotFoundError{Op: "update", URL: url, Branch: "x"}), "sync", url)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
	c, _ = ferrors.AsClassified(err)
	require.False(t, c.CanRetry())
	require.True(t, IsBranchNotFound(err))

	err = ClassifyGitError(&AuthError{Op: "clone", URL: url, Err: errors.New("denied")}, "sync", url)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryAuth))

	err = ClassifyGitError(errors.New("boom"), "sync", url)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryGit))

	require.NoError(t, ClassifyGitError(nil, "sync", url))
}
