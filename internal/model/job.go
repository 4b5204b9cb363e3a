package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobState is the lifecycle state of an asynchronous job.
type JobState string

const (
	// JobStatePending means the job is queued and no worker has claimed it yet.
	JobStatePending JobState = "PENDING"
	// JobStateRunning means a worker is executing the job.
	JobStateRunning JobState = "RUNNING"
	// JobStateSucceeded is terminal: the job finished without error.
	JobStateSucceeded JobState = "SUCCEEDED"
	// JobStateFailed is terminal: the job stopped on an error.
	JobStateFailed JobState = "FAILED"
	// JobStateUnknown is reported for ids that were never seen or have expired. It is never stored.
	JobStateUnknown JobState = "UNKNOWN"
)

// TerminalJobStates lists the states a job never leaves.
var TerminalJobStates = []JobState{JobStateSucceeded, JobStateFailed}

// Terminal reports whether the state is final.
func (s JobState) Terminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

// Predecessors returns the states a job may be in right before moving to s.
// RUNNING lists itself so progress updates can be published while running.
func (s JobState) Predecessors() []JobState {
	switch s {
	case JobStateRunning:
		return []JobState{JobStatePending, JobStateRunning}
	case JobStateSucceeded:
		return []JobState{JobStateRunning}
	case JobStateFailed:
		return []JobState{JobStatePending, JobStateRunning}
	default:
		return nil
	}
}

// CanTransitionTo reports whether moving from s to next keeps the state machine monotonic.
func (s JobState) CanTransitionTo(next JobState) bool {
	for _, p := range next.Predecessors() {
		if p == s {
			return true
		}
	}
	return false
}

// JobKind tells the executor which handler a job needs.
type JobKind string

const (
	// JobKindIngestion upserts a CSV file into the catalog.
	JobKindIngestion JobKind = "ingestion"
	// JobKindWebhookTest calls a registered webhook with a test payload.
	JobKindWebhookTest JobKind = "webhook_test"
)

// Job is one asynchronous unit of work with observable progress.
type Job struct {
	ID              uuid.UUID
	Kind            JobKind
	State           JobState
	Processed       int64
	Total           int64
	Error           string
	Result          json.RawMessage
	CancelRequested bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// InitMeta initializes the job metadata including ID and timestamps.
func (j *Job) InitMeta() {
	j.ID = uuid.New()
	now := time.Now()
	j.CreatedAt = now
	j.UpdatedAt = now
	if j.State == "" {
		j.State = JobStatePending
	}
}

// Status returns the snapshot exposed to pollers.
func (j *Job) Status() JobStatus {
	return JobStatus{
		JobID:     j.ID.String(),
		Kind:      j.Kind,
		State:     j.State,
		Processed: j.Processed,
		Total:     j.Total,
		Error:     j.Error,
		Result:    j.Result,
	}
}

// JobStatus is a read-only view of a job at one point in time.
type JobStatus struct {
	JobID     string          `json:"job_id"`
	Kind      JobKind         `json:"kind,omitempty"`
	State     JobState        `json:"state"`
	Processed int64           `json:"processed"`
	Total     int64           `json:"total"`
	Error     string          `json:"error,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}

// UnknownJobStatus is returned for ids the store does not know.
func UnknownJobStatus(jobID string) JobStatus {
	return JobStatus{JobID: jobID, State: JobStateUnknown}
}
