package git

import (
	stderrors "errors"

	"git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
)

// ClassifyGitError translates typed sync errors into ClassifiedErrors for reporting.
func ClassifyGitError(err error, op, url string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsClassified(err); ok {
		return err
	}

	builder := errors.GitError("git operation failed").
		WithCause(err).
		WithContext("op", op).
		WithContext("url", url)

	var (
		authErr   *AuthError
		nfErr     *NotFoundError
		branchErr *BranchNotFoundError
		protoErr  *UnsupportedProtocolError
	)
	switch {
	case stderrors.As(err, &authErr):
		builder.WithCategory(errors.CategoryAuth).UserAction()
	case stderrors.As(err, &branchErr):
		builder.WithCategory(errors.CategoryNotFound).
			WithRetry(errors.RetryNever).
			WithContext("branch", branchErr.Branch)
	case stderrors.As(err, &nfErr):
		builder.WithCategory(errors.CategoryNotFound).WithRetry(errors.RetryNever)
	case stderrors.As(err, &protoErr):
		builder.WithCategory(errors.CategoryConfig).WithRetry(errors.RetryNever)
	case IsTransient(err):
		builder.WithCategory(errors.CategoryNetwork).Retryable()
	}
	return builder.Build()
}
