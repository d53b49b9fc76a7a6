package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Andrej220/go-utils/jobqueue"
)

// tracerName is the instrumentation scope name for jobqueue tracing.
const tracerName = "github.com/Andrej220/go-utils/jobqueue"

// Tracing wraps each execution in a span from the global TracerProvider.
// Without a configured provider the noop tracer makes it a pass-through.
func Tracing[T, R any](queue string) Middleware[T, R] {
	return TracingWithTracer[T, R](otel.Tracer(tracerName), queue)
}

// TracingWithTracer is Tracing with an explicit tracer, for tests or when
// several providers are in use.
//
// Span attributes: jobqueue.job.id, jobqueue.queue, and
// jobqueue.cancel.reason when the job was cancelled during execution.
func TracingWithTracer[T, R any](tracer trace.Tracer, queue string) Middleware[T, R] {
	return func(next jobqueue.Executor[T, R]) jobqueue.Executor[T, R] {
		return func(ctx context.Context, payload T, id string) (R, error) {
			ctx, span := tracer.Start(ctx, "jobqueue.job.execute",
				trace.WithAttributes(
					attribute.String("jobqueue.job.id", id),
					attribute.String("jobqueue.queue", queue),
				),
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			res, err := next(ctx, payload, id)

			if reason, ok := jobqueue.ReasonOf(context.Cause(ctx)); ok {
				span.SetAttributes(attribute.String("jobqueue.cancel.reason", reason.String()))
			}
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return res, err
		}
	}
}
