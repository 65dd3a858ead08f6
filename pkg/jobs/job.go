// Package jobs submits units of work to a remote async-execution service and
// polls them to completion with adaptive backoff.
package jobs

import (
	"fmt"
)

// Status is the remote job state machine:
// pending -> in_progress -> {completed | failed}.
// completed and failed are terminal and final.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are legal from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// rank orders statuses along the lifecycle so a poller can refuse to regress
// a locally cached status backward.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	default:
		return -1
	}
}

// ValidTransition reports whether from -> to is legal.
func ValidTransition(from, to Status) bool {
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	return to.rank() > from.rank()
}

// InputSpec describes one input the remote service requires for kickoff.
type InputSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Snapshot is one observed remote status.
type Snapshot struct {
	Status   Status `json:"status"`
	Progress int    `json:"progress"` // 0-100
	Result   string `json:"result,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Job is a remote unit of work. It is created on submission and owned by the
// poller that drives it until a terminal status is observed; the ownership
// registry in Poller guarantees no two pollers mutate one Job concurrently.
type Job struct {
	ID        string         `json:"id"` // assigned by the remote service on submission
	Inputs    map[string]any `json:"inputs"`
	Status    Status         `json:"status"`
	Progress  int            `json:"progress"`
	Result    string         `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Simulated bool           `json:"simulated,omitempty"`
	Warning   string         `json:"warning,omitempty"` // surfaced when submission degraded to simulation
}

// apply folds an observed snapshot into the job, enforcing monotonicity:
// once terminal the job never changes, and a snapshot that would move the
// status backward is ignored.
func (j *Job) apply(snap Snapshot) {
	if j.Status.Terminal() {
		return
	}
	if !ValidTransition(j.Status, snap.Status) {
		return
	}
	j.Status = snap.Status
	if snap.Progress > j.Progress {
		j.Progress = snap.Progress
	}
	if snap.Result != "" {
		j.Result = snap.Result
	}
	if snap.Error != "" {
		j.Error = snap.Error
	}
	if j.Status == StatusCompleted && j.Progress < 100 {
		j.Progress = 100
	}
}

// snapshot returns the job's current observable state.
func (j *Job) snapshot() Snapshot {
	return Snapshot{
		Status:   j.Status,
		Progress: j.Progress,
		Result:   j.Result,
		Error:    j.Error,
	}
}

func (j *Job) String() string {
	return fmt.Sprintf("job %s: %s (%d%%)", j.ID, j.Status, j.Progress)
}
