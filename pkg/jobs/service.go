package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agentcore/pkg/agent/llmerrors"
)

// Service is the remote async-execution API the poller drives. The HTTP
// implementation talks to a real endpoint; the simulator implements the same
// interface locally.
type Service interface {
	// RequiredInputs returns the input schema the service expects at kickoff.
	RequiredInputs(ctx context.Context) ([]InputSpec, error)
	// Kickoff starts a new job and returns its service-assigned ID.
	Kickoff(ctx context.Context, inputs map[string]any) (string, error)
	// Status fetches the current status of a job. One call, one round trip.
	Status(ctx context.Context, jobID string) (Snapshot, error)
}

// HTTPService talks to the remote execution service over its JSON API:
//
//	GET  {base}/required-inputs
//	POST {base}/kickoff            body: inputs, response: {"task_id": ...}
//	GET  {base}/status/{task_id}
type HTTPService struct {
	base   string
	client *http.Client
}

// NewHTTPService creates a client for the service at base (scheme + host +
// optional path prefix, no trailing slash required).
func NewHTTPService(base string, client *http.Client) *HTTPService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPService{base: strings.TrimRight(base, "/"), client: client}
}

func (s *HTTPService) RequiredInputs(ctx context.Context) ([]InputSpec, error) {
	var specs []InputSpec
	if err := s.getJSON(ctx, s.base+"/required-inputs", &specs); err != nil {
		return nil, err
	}
	return specs, nil
}

func (s *HTTPService) Kickoff(ctx context.Context, inputs map[string]any) (string, error) {
	body, err := json.Marshal(inputs)
	if err != nil {
		return "", llmerrors.NewWithCause(llmerrors.KindSubmission, err, "encode kickoff inputs")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+"/kickoff", bytes.NewReader(body))
	if err != nil {
		return "", llmerrors.NewWithCause(llmerrors.KindSubmission, err, "build kickoff request")
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		TaskID string `json:"task_id"`
	}
	if err := s.do(req, &resp); err != nil {
		return "", err
	}
	if resp.TaskID == "" {
		return "", llmerrors.New(llmerrors.KindSubmission, "kickoff response carried no task_id")
	}
	return resp.TaskID, nil
}

func (s *HTTPService) Status(ctx context.Context, jobID string) (Snapshot, error) {
	var snap Snapshot
	if err := s.getJSON(ctx, s.base+"/status/"+jobID, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *HTTPService) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return llmerrors.NewWithCause(llmerrors.KindSubmission, err, "build request")
	}
	return s.do(req, out)
}

// do executes the request and decodes a JSON response, classifying failures:
// network and 5xx errors are transient (retryable), other 4xx are submission
// failures, and context cancellation surfaces as Cancelled.
func (s *HTTPService) do(req *http.Request, out any) error {
	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return llmerrors.NewWithCause(llmerrors.KindCancelled, err, "request cancelled")
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return llmerrors.NewWithCause(llmerrors.KindTransient, err, "request timed out")
		}
		return llmerrors.NewWithCause(llmerrors.KindTransient, err, "service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := fmt.Sprintf("%s %s: %s: %s", req.Method, req.URL.Path, resp.Status, strings.TrimSpace(string(body)))
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return llmerrors.NewWithStatus(llmerrors.KindRateLimit, resp.StatusCode, msg)
		case resp.StatusCode >= 500:
			return llmerrors.NewWithStatus(llmerrors.KindTransient, resp.StatusCode, msg)
		default:
			return llmerrors.NewWithStatus(llmerrors.KindSubmission, resp.StatusCode, msg)
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return llmerrors.NewWithCause(llmerrors.KindTransient, err, "decode response")
	}
	return nil
}
