// Package errors provides the classified error primitives used across mapbuilder.
//
// A ClassifiedError carries a category (auth, validation, network, git, render,
// publish, ...), a severity, a retry strategy and structured context. The
// HTTP and CLI adapters translate them into status codes and exit codes.
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryGit, "fetch failed").
//		Retryable().
//		WithContext("url", remoteURL).
//		WithCause(originalErr).
//		Build()
package errors
