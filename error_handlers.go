package jobqueue

// reportInternalError reports a queue failure that is not tied to a job's
// own result, such as an observer panic.
//
// The caller logs the failure; this only forwards it to the optional
// handler.
func (q *Queue[T, R]) reportInternalError(e error) {
	if q.opts.OnInternalError != nil {
		q.opts.OnInternalError(e)
	}
}

// reportJobError reports an error returned by an executor or
// produced by panic recovery.
//
// Job errors never stop a worker. They reach the submitter through the
// outcome and, in addition, the configured handler.
func (q *Queue[T, R]) reportJobError(info JobInfo, err error) {
	if q.opts.OnJobError != nil {
		q.opts.OnJobError(info, err)
	}
}
