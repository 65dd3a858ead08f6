// Package metrics provides Prometheus-based metrics recording for LLM operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	requestsTotal   *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	pollsTotal      *prometheus.CounterVec
}

// NewPrometheusRecorder creates a new Prometheus-based metrics recorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of LLM requests by provider, model, run, status, and error kind",
			},
			[]string{"provider", "model", "run_id", "status", "error_kind"},
		),
		tokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total number of tokens used in LLM requests",
			},
			[]string{"provider", "model", "run_id", "type"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Duration of LLM requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "model", "run_id"},
		),
		pollsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "job_polls_total",
				Help: "Total number of remote job status polls",
			},
			[]string{"job_id", "status"},
		),
	}
}

// ObserveRequest records metrics for a completed LLM request.
func (p *PrometheusRecorder) ObserveRequest(
	provider, model, runID string,
	promptTokens, completionTokens int,
	success bool,
	errorKind string,
	duration time.Duration,
) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}

	p.requestsTotal.WithLabelValues(provider, model, runID, status, errorKind).Inc()

	// Tokens only meaningful on success.
	if success {
		p.tokensTotal.WithLabelValues(provider, model, runID, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(provider, model, runID, "completion").Add(float64(completionTokens))
	}

	p.requestDuration.WithLabelValues(provider, model, runID).Observe(duration.Seconds())
}

// ObservePoll records a single remote-job status poll.
func (p *PrometheusRecorder) ObservePoll(jobID string, success bool) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}
	p.pollsTotal.WithLabelValues(jobID, status).Inc()
}
