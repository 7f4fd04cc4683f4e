package types

// JobStatus is shared by job configs and executions. created and running are
// the only non-terminal states; a terminal record is never transitioned
// again (restart creates a new execution).
type JobStatus string

const (
	JobStatusCreated   JobStatus = "created"
	JobStatusRunning   JobStatus = "running"
	JobStatusFinished  JobStatus = "finished"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
	JobStatusSuspended JobStatus = "suspended"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusCreated, JobStatusRunning, JobStatusFinished,
		JobStatusFailed, JobStatusCanceled, JobStatusSuspended:
		return true
	}
	return false
}

func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusFinished, JobStatusFailed, JobStatusCanceled, JobStatusSuspended:
		return true
	}
	return false
}

// History actions.
const (
	ActionStart   = "START"
	ActionStop    = "STOP"
	ActionRestart = "RESTART"
)
