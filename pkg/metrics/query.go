// Package metrics queries and aggregates recorded run metrics from Prometheus.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	recording "agentcore/pkg/agent/middleware/metrics"
)

// RunMetrics represents aggregated usage for one pipeline run.
type RunMetrics struct {
	RunID            string `json:"run_id"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
	Requests         int64  `json:"requests"`
	FailedRequests   int64  `json:"failed_requests"`
}

// QueryService provides methods to query metrics from Prometheus.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a new metrics query service.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// sumQuery runs an instant sum query and returns the first sample, or zero
// when the series does not exist yet.
func (q *QueryService) sumQuery(ctx context.Context, query string) (int64, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
		return int64(vector[0].Value), nil
	}
	return 0, nil
}

// GetRunMetrics retrieves aggregated token and request counts for one run,
// summed across all agents and providers that participated in it.
func (q *QueryService) GetRunMetrics(ctx context.Context, runID string) (*RunMetrics, error) {
	metrics := &RunMetrics{RunID: runID}

	var err error
	metrics.PromptTokens, err = q.sumQuery(ctx,
		fmt.Sprintf(`sum(llm_tokens_total{run_id=%q, type="prompt"})`, runID))
	if err != nil {
		return nil, fmt.Errorf("failed to query prompt tokens: %w", err)
	}

	metrics.CompletionTokens, err = q.sumQuery(ctx,
		fmt.Sprintf(`sum(llm_tokens_total{run_id=%q, type="completion"})`, runID))
	if err != nil {
		return nil, fmt.Errorf("failed to query completion tokens: %w", err)
	}
	metrics.TotalTokens = metrics.PromptTokens + metrics.CompletionTokens

	metrics.Requests, err = q.sumQuery(ctx,
		fmt.Sprintf(`sum(llm_requests_total{run_id=%q})`, runID))
	if err != nil {
		return nil, fmt.Errorf("failed to query request count: %w", err)
	}

	metrics.FailedRequests, err = q.sumQuery(ctx,
		fmt.Sprintf(`sum(llm_requests_total{run_id=%q, status=%q})`, runID, recording.StatusError))
	if err != nil {
		return nil, fmt.Errorf("failed to query failure count: %w", err)
	}

	return metrics, nil
}

// GetRunMetricsByModel breaks run usage down per model, showing which models
// carried the run and their individual token counts.
func (q *QueryService) GetRunMetricsByModel(ctx context.Context, runID string) (map[string]*RunMetrics, error) {
	result := make(map[string]*RunMetrics)

	modelsQuery := fmt.Sprintf(`group by (model) (llm_tokens_total{run_id=%q})`, runID)
	modelsResult, _, err := q.queryAPI.Query(ctx, modelsQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}

	var models []string
	if vector, ok := modelsResult.(model.Vector); ok {
		for _, sample := range vector {
			if modelName, ok := sample.Metric["model"]; ok {
				models = append(models, string(modelName))
			}
		}
	}

	for _, modelName := range models {
		metrics := &RunMetrics{RunID: runID}

		metrics.PromptTokens, err = q.sumQuery(ctx,
			fmt.Sprintf(`sum(llm_tokens_total{run_id=%q, model=%q, type="prompt"})`, runID, modelName))
		if err != nil {
			return nil, fmt.Errorf("failed to query prompt tokens for %s: %w", modelName, err)
		}

		metrics.CompletionTokens, err = q.sumQuery(ctx,
			fmt.Sprintf(`sum(llm_tokens_total{run_id=%q, model=%q, type="completion"})`, runID, modelName))
		if err != nil {
			return nil, fmt.Errorf("failed to query completion tokens for %s: %w", modelName, err)
		}
		metrics.TotalTokens = metrics.PromptTokens + metrics.CompletionTokens

		result[modelName] = metrics
	}

	return result, nil
}
