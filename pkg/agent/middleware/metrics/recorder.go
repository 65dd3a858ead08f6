// Package metrics provides metrics recording for LLM client operations.
package metrics

import (
	"time"
)

// Status label values emitted on request and poll counters. The query side
// matches on these, so both sides share the constants.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Recorder defines the interface for recording LLM operation metrics.
type Recorder interface {
	// ObserveRequest records metrics for a completed LLM request.
	ObserveRequest(
		provider, model, runID string,
		promptTokens, completionTokens int,
		success bool,
		errorKind string,
		duration time.Duration,
	)

	// ObservePoll records a single remote-job status poll.
	ObservePoll(jobID string, success bool)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(_, _, _ string, _, _ int, _ bool, _ string, _ time.Duration) {
}

// ObservePoll does nothing in the no-op recorder.
func (n *NoopRecorder) ObservePoll(_ string, _ bool) {
}
