package apiclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// PollConfig bounds how long an asynchronous job is waited on.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	// Timeout caps the total wait. Zero means only MaxAttempts applies.
	Timeout time.Duration
}

// DefaultPollConfig checks every five seconds for up to ten minutes.
var DefaultPollConfig = PollConfig{
	Interval:    5 * time.Second,
	MaxAttempts: 120,
	Timeout:     10 * time.Minute,
}

// PollFunc performs one check. ready is false while the job is still running.
type PollFunc[T any] func(ctx context.Context) (result T, ready bool, err error)

var errNotReady = errors.New("job not ready")

// Poll calls fn until it reports ready, returns an error, or the attempt or time
// budget runs out, in which case the returned error wraps ErrTimedOut.
func Poll[T any](ctx context.Context, cfg PollConfig, fn PollFunc[T]) (T, error) {
	var zero T
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	var (
		result   T
		attempts int
	)
	operation := func() error {
		attempts++
		out, ready, err := fn(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ready {
			return errNotReady
		}
		result = out
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.Interval), uint64(cfg.MaxAttempts-1)),
		ctx,
	)
	err := backoff.Retry(operation, policy)
	switch {
	case err == nil:
		return result, nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, errNotReady):
		return zero, fmt.Errorf("%w after %d attempts", ErrTimedOut, attempts)
	default:
		return zero, err
	}
}
