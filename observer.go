package jobqueue

// Observer receives queue lifecycle events.
//
// Observers are called synchronously while the queue's bookkeeping lock
// is held, which keeps events for a job in order: admitted first, then
// exactly one of processed or cancelled. They must return quickly and
// must not call back into the Queue.
type Observer interface {
	// OnAdmitted fires when a job enters the backlog.
	OnAdmitted(job JobInfo, backlog int)

	// OnProcessed fires when the executor settled a job. err is nil on
	// success, in which case result holds the executor's value.
	OnProcessed(job JobInfo, result any, err error, backlog int)

	// OnCancelled fires when a job was cancelled before it settled.
	OnCancelled(job JobInfo, reason Reason, backlog int)

	// OnCancelRequested fires for every Cancel call, known id or not.
	OnCancelRequested(id string)
}

// NoopObserver ignores every event. Embed it to implement only a subset
// of Observer.
type NoopObserver struct{}

func (NoopObserver) OnAdmitted(JobInfo, int)              {}
func (NoopObserver) OnProcessed(JobInfo, any, error, int) {}
func (NoopObserver) OnCancelled(JobInfo, Reason, int)     {}
func (NoopObserver) OnCancelRequested(string)             {}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Admitted        func(job JobInfo, backlog int)
	Processed       func(job JobInfo, result any, err error, backlog int)
	Cancelled       func(job JobInfo, reason Reason, backlog int)
	CancelRequested func(id string)
}

func (f ObserverFuncs) OnAdmitted(j JobInfo, backlog int) {
	if f.Admitted != nil {
		f.Admitted(j, backlog)
	}
}

func (f ObserverFuncs) OnProcessed(j JobInfo, result any, err error, backlog int) {
	if f.Processed != nil {
		f.Processed(j, result, err, backlog)
	}
}

func (f ObserverFuncs) OnCancelled(j JobInfo, reason Reason, backlog int) {
	if f.Cancelled != nil {
		f.Cancelled(j, reason, backlog)
	}
}

func (f ObserverFuncs) OnCancelRequested(id string) {
	if f.CancelRequested != nil {
		f.CancelRequested(id)
	}
}
