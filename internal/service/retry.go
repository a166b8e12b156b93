package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"aisri/internal/store"
)

// RetryPolicy bounds how transient repository errors are retried
type RetryPolicy struct {
	Attempts    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryPolicy retries three times starting at 100ms
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:    3,
		BaseBackoff: 100 * time.Millisecond,
		MaxBackoff:  2 * time.Second,
	}
}

type retrier struct {
	policy RetryPolicy
}

// do runs op until it succeeds, fails with a non-transient error, the
// retries run out, or ctx is done. Exhausted transient errors are wrapped
// with ErrTransient.
func (r *retrier) do(ctx context.Context, op func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.BaseBackoff
	b.MaxInterval = r.policy.MaxBackoff
	b.MaxElapsedTime = 0

	var transient bool
	err := backoff.Retry(func() error {
		err := op(ctx)
		transient = store.IsTransient(err)
		if err != nil && !transient {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(r.policy.Attempts, 0))), ctx))

	if err == nil {
		return nil
	}
	if transient && ctx.Err() == nil {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}
