package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/sethvargo/go-retry"
)

const (
	storageRetryAttempts = 3
	storageRetryBackoff  = 50 * time.Millisecond
)

// withStorageRetry runs fn with a small fixed retry budget for transient
// storage faults. Domain errors (not found, conflicts, auth rejections) are
// never retried; they carry their meaning on the first attempt.
func withStorageRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(storageRetryAttempts, retry.NewConstant(storageRetryBackoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if isDomainError(err) {
			return err
		}
		return retry.RetryableError(err)
	})
}

// isDomainError reports whether the error is a classified domain outcome
// rather than an infrastructure fault.
func isDomainError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}

	switch richErr.Category {
	case goerrors.CategoryInternal:
		return false
	default:
		return true
	}
}
