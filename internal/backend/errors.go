package backend

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrItemNotFound is returned when an item does not exist.
	ErrItemNotFound = errors.New("item not found")

	// ErrRepositoryFailure is returned when the repository rejects or fails a query.
	ErrRepositoryFailure = errors.New("repository failure")

	// ErrRepositoryTimeout is returned when a repository call runs past its deadline.
	ErrRepositoryTimeout = errors.New("repository timeout")

	// ErrRepositoryUnavailable is returned when the repository cannot be reached.
	ErrRepositoryUnavailable = errors.New("repository unavailable")

	// ErrUnsupportedExpression is returned when an adapter meets a predicate it cannot lower.
	ErrUnsupportedExpression = errors.New("unsupported filter expression")
)

// WrapError classifies an adapter error. Caller cancellation passes through
// unchanged, a deadline becomes ErrRepositoryTimeout and anything not already
// classified becomes ErrRepositoryFailure.
func WrapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", op, ErrRepositoryTimeout, err)
	case errors.Is(err, ErrRepositoryTimeout),
		errors.Is(err, ErrRepositoryUnavailable),
		errors.Is(err, ErrRepositoryFailure),
		errors.Is(err, ErrCollectionNotFound),
		errors.Is(err, ErrItemNotFound):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrRepositoryFailure, err)
	}
}
