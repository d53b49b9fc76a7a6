// Package observability records jobqueue lifecycle events as OpenTelemetry
// metrics.
//
// Register the observer when building the queue:
//
//	q, err := jobqueue.NewFromOptions("emails", send, jobqueue.Options{
//	    Concurrency: 8,
//	    Observers:   []jobqueue.Observer{observability.New()},
//	})
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Andrej220/go-utils/jobqueue"
)

// meterName is the instrumentation scope name for jobqueue metrics.
const meterName = "github.com/Andrej220/go-utils/jobqueue"

// Compile-time interface check.
var _ jobqueue.Observer = (*MetricsObserver)(nil)

// MetricsObserver turns queue events into OTel instruments:
//   - jobqueue.job.admitted (Int64Counter): attribute queue
//   - jobqueue.job.processed (Int64Counter): attributes queue, status ("ok" or "error")
//   - jobqueue.job.cancelled (Int64Counter): attributes queue, reason, stage ("pending" or "running")
//   - jobqueue.job.cancel_requests (Int64Counter)
//   - jobqueue.job.duration (Float64Histogram): seconds from start to settlement
//   - jobqueue.job.wait (Float64Histogram): seconds spent in the backlog
//   - jobqueue.backlog (Int64Gauge): backlog length after each event, attribute queue
type MetricsObserver struct {
	admitted       metric.Int64Counter
	processed      metric.Int64Counter
	cancelled      metric.Int64Counter
	cancelRequests metric.Int64Counter
	duration       metric.Float64Histogram
	wait           metric.Float64Histogram
	backlog        metric.Int64Gauge
}

// New creates an observer on the global MeterProvider. Without a configured
// provider the instruments are noops.
func New() *MetricsObserver {
	return NewWithMeter(otel.Meter(meterName))
}

// NewWithMeter creates an observer on the given meter.
func NewWithMeter(meter metric.Meter) *MetricsObserver {
	// On error the API hands back noop instruments, so failures only
	// mean missing data.
	admitted, _ := meter.Int64Counter("jobqueue.job.admitted",
		metric.WithDescription("Jobs accepted into the backlog"),
		metric.WithUnit("{job}"),
	)
	processed, _ := meter.Int64Counter("jobqueue.job.processed",
		metric.WithDescription("Jobs settled by their executor"),
		metric.WithUnit("{job}"),
	)
	cancelled, _ := meter.Int64Counter("jobqueue.job.cancelled",
		metric.WithDescription("Jobs cancelled before settlement"),
		metric.WithUnit("{job}"),
	)
	cancelRequests, _ := meter.Int64Counter("jobqueue.job.cancel_requests",
		metric.WithDescription("Cancel-by-id requests, including unknown ids"),
		metric.WithUnit("{request}"),
	)
	duration, _ := meter.Float64Histogram("jobqueue.job.duration",
		metric.WithDescription("Executor run time of settled jobs"),
		metric.WithUnit("s"),
	)
	wait, _ := meter.Float64Histogram("jobqueue.job.wait",
		metric.WithDescription("Time between submission and start"),
		metric.WithUnit("s"),
	)
	backlog, _ := meter.Int64Gauge("jobqueue.backlog",
		metric.WithDescription("Jobs waiting for a worker"),
		metric.WithUnit("{job}"),
	)

	return &MetricsObserver{
		admitted:       admitted,
		processed:      processed,
		cancelled:      cancelled,
		cancelRequests: cancelRequests,
		duration:       duration,
		wait:           wait,
		backlog:        backlog,
	}
}

// OnAdmitted implements jobqueue.Observer.
func (m *MetricsObserver) OnAdmitted(job jobqueue.JobInfo, backlog int) {
	ctx := context.Background()
	queue := metric.WithAttributes(attribute.String("queue", job.Queue))
	m.admitted.Add(ctx, 1, queue)
	m.backlog.Record(ctx, int64(backlog), queue)
}

// OnProcessed implements jobqueue.Observer.
func (m *MetricsObserver) OnProcessed(job jobqueue.JobInfo, _ any, err error, backlog int) {
	ctx := context.Background()
	status := "ok"
	if err != nil {
		status = "error"
	}

	m.processed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("queue", job.Queue),
		attribute.String("status", status),
	))
	m.duration.Record(ctx, job.FinishedAt.Sub(job.StartedAt).Seconds(), metric.WithAttributes(
		attribute.String("queue", job.Queue),
		attribute.String("status", status),
	))
	m.wait.Record(ctx, job.StartedAt.Sub(job.SubmittedAt).Seconds(),
		metric.WithAttributes(attribute.String("queue", job.Queue)))
	m.backlog.Record(ctx, int64(backlog), metric.WithAttributes(attribute.String("queue", job.Queue)))
}

// OnCancelled implements jobqueue.Observer.
func (m *MetricsObserver) OnCancelled(job jobqueue.JobInfo, reason jobqueue.Reason, backlog int) {
	ctx := context.Background()
	stage := "pending"
	if !job.StartedAt.IsZero() {
		stage = "running"
	}

	m.cancelled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("queue", job.Queue),
		attribute.String("reason", reason.String()),
		attribute.String("stage", stage),
	))
	m.backlog.Record(ctx, int64(backlog), metric.WithAttributes(attribute.String("queue", job.Queue)))
}

// OnCancelRequested implements jobqueue.Observer.
func (m *MetricsObserver) OnCancelRequested(string) {
	m.cancelRequests.Add(context.Background(), 1)
}
