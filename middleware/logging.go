package middleware

import (
	"context"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"

	"github.com/Andrej220/go-utils/jobqueue"
)

// Logging logs the start and end of every execution with the logger
// carried by the job context. The job context inherits the values of the
// context given to Submit, so attach the logger there.
func Logging[T, R any]() Middleware[T, R] {
	return func(next jobqueue.Executor[T, R]) jobqueue.Executor[T, R] {
		return func(ctx context.Context, payload T, id string) (R, error) {
			logger := lg.FromContext(ctx).With(lg.String("job_id", id))
			logger.Info("job started")

			start := time.Now()
			res, err := next(ctx, payload, id)
			elapsed := time.Since(start)

			switch {
			case err != nil && ctx.Err() != nil:
				logger.Warn("job stopped after cancellation",
					lg.String("elapsed", elapsed.String()),
					lg.Any("cause", context.Cause(ctx)),
				)
			case err != nil:
				logger.Error("job failed",
					lg.String("elapsed", elapsed.String()),
					lg.Any("error", err),
				)
			default:
				logger.Info("job completed", lg.String("elapsed", elapsed.String()))
			}
			return res, err
		}
	}
}
