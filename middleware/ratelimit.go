package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/Andrej220/go-utils/jobqueue"
)

// RateLimit paces executions with a shared token bucket. The wait happens
// inside the worker, so a throttled job keeps its slot; it gives up as
// soon as the job is cancelled.
func RateLimit[T, R any](limiter *rate.Limiter) Middleware[T, R] {
	return func(next jobqueue.Executor[T, R]) jobqueue.Executor[T, R] {
		return func(ctx context.Context, payload T, id string) (R, error) {
			if err := limiter.Wait(ctx); err != nil {
				var zero R
				if cause := context.Cause(ctx); cause != nil {
					return zero, cause
				}
				return zero, err
			}
			return next(ctx, payload, id)
		}
	}
}
