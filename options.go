package jobqueue

import (
	"runtime"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultAwaitTimeout bounds AwaitJob when no timeout is given.
	DefaultAwaitTimeout = time.Hour
)

// Options configure a Queue.
//
// All zero values are replaced with sensible defaults in FillDefaults.
type Options struct {
	// Concurrency is the maximum number of jobs running at once.
	// It is also the number of worker goroutines.
	Concurrency int

	// BacklogCapacity is the initial size of the backlog ring.
	// The ring grows on demand; this only avoids early reallocations.
	BacklogCapacity int

	Logger *zap.Logger

	Observers []Observer

	Metrics MetricsPolicy

	// OnJobError receives every executor failure, including recovered panics.
	OnJobError func(JobInfo, error)

	// OnInternalError receives failures of the queue machinery itself,
	// such as a panicking observer.
	OnInternalError func(error)
}

func (o *Options) FillDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = runtime.GOMAXPROCS(0)
	}
	if o.BacklogCapacity <= 0 {
		o.BacklogCapacity = initialFifoCapacity
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = &NoopMetrics{}
	}
}

type submitConfig struct {
	timeout time.Duration
}

// SubmitOption configures a single submission.
type SubmitOption func(*submitConfig)

// WithTimeout cancels the job with ReasonTimeout if it has not finished d
// after submission. The clock starts at admission into the backlog, so a
// job can time out while still waiting for a worker. d <= 0 disables it.
func WithTimeout(d time.Duration) SubmitOption {
	return func(c *submitConfig) { c.timeout = d }
}

// WithTimeoutSeconds is WithTimeout expressed in (fractional) seconds.
func WithTimeoutSeconds(s float64) SubmitOption {
	return WithTimeout(time.Duration(s * float64(time.Second)))
}
