package constants

// JobStatus is the lifecycle state reported for an analysis job.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "QUEUED"  // accepted by the async queue, not started
	JobStatusRunning JobStatus = "RUNNING" // chunks in flight
	JobStatusDone    JobStatus = "DONE"    // finished, report available
	JobStatusFailed  JobStatus = "FAILED"  // job-level failure, see error
)

// CallState is where one model stands on one chunk.
type CallState string

const (
	CallSent    CallState = "SENT"
	CallValid   CallState = "VALID"
	CallInvalid CallState = "INVALID"
	CallFailed  CallState = "FAILED"
)
