// Package middleware provides composable decorators for jobqueue executors.
//
// A Middleware wraps an Executor and returns a new one, so cross-cutting
// behavior (logging, tracing, executor-owned retries, pacing) stays out of
// both the queue and the business function:
//
//	exec := middleware.Chain(render,
//	    middleware.Logging[Image, Thumb](),
//	    middleware.Retry[Image, Thumb](middleware.RetryPolicy{Attempts: 3}),
//	)
//	q, err := jobqueue.New("thumbnails", 4, exec)
package middleware

import (
	"github.com/Andrej220/go-utils/jobqueue"
)

// Middleware wraps an executor with cross-cutting logic. The returned
// executor MUST call next to continue the chain, unless it short-circuits
// with an error.
type Middleware[T, R any] func(next jobqueue.Executor[T, R]) jobqueue.Executor[T, R]

// Chain wraps exec with mws. The first middleware is the outermost one:
//
//	Chain(exec, logging, retry) runs as logging → retry → exec
func Chain[T, R any](exec jobqueue.Executor[T, R], mws ...Middleware[T, R]) jobqueue.Executor[T, R] {
	for i := len(mws) - 1; i >= 0; i-- {
		exec = mws[i](exec)
	}
	return exec
}
