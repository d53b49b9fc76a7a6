package middleware

import (
	"context"
	"time"

	boff "github.com/Andrej220/go-utils/backoff"
	lg "github.com/Andrej220/go-utils/zlog"

	"github.com/Andrej220/go-utils/jobqueue"
)

// Retry re-runs a failing executor with exponential backoff. The queue
// itself never retries; this keeps the policy with the executor.
//
// Retrying stops as soon as the job context is cancelled, and the backoff
// sleep is interrupted by it. The returned error is then the context's
// cause, which is the job's *jobqueue.CancellationError.
func Retry[T, R any](policy RetryPolicy) Middleware[T, R] {
	pol := policy.withDefaults()

	return func(next jobqueue.Executor[T, R]) jobqueue.Executor[T, R] {
		return func(ctx context.Context, payload T, id string) (R, error) {
			logger := lg.FromContext(ctx).With(lg.String("job_id", id))
			bo := boff.New(pol.Initial, pol.Max, time.Now().UnixNano())

			var zero R
			for attempt := 1; ; attempt++ {
				res, err := next(ctx, payload, id)
				if err == nil {
					return res, nil
				}
				if ctx.Err() != nil {
					return zero, context.Cause(ctx)
				}
				if attempt >= pol.Attempts || (pol.ShouldRetry != nil && !pol.ShouldRetry(err)) {
					return zero, err
				}

				delay := bo.Next()
				logger.Warn("job attempt failed; backing off",
					lg.Int("attempt", attempt),
					lg.String("sleep", delay.String()),
					lg.Any("error", err),
				)
				timer := time.NewTimer(delay)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return zero, context.Cause(ctx)
				}
			}
		}
	}
}
