package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Typed git errors enabling structured classification without string parsing upstream.
type AuthError struct {
	Op, URL string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s auth error for %s: %v", e.Op, e.URL, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

type NotFoundError struct {
	Op, URL string
	Err     error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found %s: %v", e.Op, e.URL, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// BranchNotFoundError means the requested branch does not exist on the remote. The target is bad;
// repeating the sync will not help.
type BranchNotFoundError struct {
	Op, URL, Branch string
	Err             error
}

func (e *BranchNotFoundError) Error() string {
	return fmt.Sprintf("%s branch %q not found on %s: %v", e.Op, e.Branch, e.URL, e.Err)
}

func (e *BranchNotFoundError) Unwrap() error {
	return e.Err
}

// TransientError wraps network and transport failures where a later attempt may succeed.
type TransientError struct {
	Op, URL string
	Err     error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s transient failure for %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

type UnsupportedProtocolError struct {
	Op, URL string
	Err     error
}

func (e *UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("%s unsupported protocol %s: %v", e.Op, e.URL, e.Err)
}

func (e *UnsupportedProtocolError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return stderrors.As(err, &te)
}

// IsBranchNotFound reports whether err is a BranchNotFoundError.
func IsBranchNotFound(err error) bool {
	var be *BranchNotFoundError
	return stderrors.As(err, &be)
}

// classifyRemoteError maps go-git clone/fetch failures onto the typed errors above.
// Errors that match nothing stay untyped.
func classifyRemoteError(op, url, branch string, err error) error {
	if err == nil {
		return nil
	}
	l := strings.ToLower(err.Error())
	var noMatch git.NoMatchingRefSpecError

	switch {
	case stderrors.Is(err, transport.ErrAuthenticationRequired),
		stderrors.Is(err, transport.ErrAuthorizationFailed),
		strings.Contains(l, "authentication"), strings.Contains(l, "auth fail"),
		strings.Contains(l, "invalid username or password"):
		return &AuthError{Op: op, URL: url, Err: err}
	case stderrors.Is(err, transport.ErrRepositoryNotFound),
		strings.Contains(l, "repository not found"), strings.Contains(l, "repository does not exist"):
		return &NotFoundError{Op: op, URL: url, Err: err}
	case branch != "" && (stderrors.Is(err, plumbing.ErrReferenceNotFound) || stderrors.As(err, &noMatch) ||
		strings.Contains(l, "reference not found") || strings.Contains(l, "couldn't find remote ref")):
		return &BranchNotFoundError{Op: op, URL: url, Branch: branch, Err: err}
	case strings.Contains(l, "unsupported protocol") || strings.Contains(l, "protocol not supported"):
		return &UnsupportedProtocolError{Op: op, URL: url, Err: err}
	case stderrors.Is(err, context.DeadlineExceeded),
		stderrors.Is(err, transport.ErrEmptyUploadPackRequest),
		strings.Contains(l, "timeout"), strings.Contains(l, "connection reset"),
		strings.Contains(l, "connection refused"), strings.Contains(l, "no such host"),
		strings.Contains(l, "remote hung up"), strings.Contains(l, "no route to host"),
		strings.Contains(l, "eof"), strings.Contains(l, "rate limit"), strings.Contains(l, "too many requests"):
		return &TransientError{Op: op, URL: url, Err: err}
	}
	return fmt.Errorf("%s %s: %w", op, url, err)
}
