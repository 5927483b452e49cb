// Package git keeps persistent working copies in sync with their remotes.
//
// A working copy is a read-only mirror: it is cloned on first use and afterwards
// fetched and moved to the tip of the tracked branch, discarding any local divergence.
// Failures are returned as typed errors (AuthError, NotFoundError, BranchNotFoundError,
// TransientError) so callers can tell a bad target from a flaky network.
package git
