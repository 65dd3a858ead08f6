package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentcore/pkg/agent/llmerrors"
)

func TestHTTPServiceKickoff(t *testing.T) {
	var gotInputs map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/kickoff", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotInputs))
		_ = json.NewEncoder(w).Encode(map[string]string{"task_id": "task-42"})
	}))
	defer server.Close()

	svc := NewHTTPService(server.URL, nil)
	id, err := svc.Kickoff(context.Background(), map[string]any{"prompt": "build it"})
	require.NoError(t, err)
	assert.Equal(t, "task-42", id)
	assert.Equal(t, "build it", gotInputs["prompt"])
}

func TestHTTPServiceStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/status/task-42", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Snapshot{Status: StatusInProgress, Progress: 60})
	}))
	defer server.Close()

	svc := NewHTTPService(server.URL, nil)
	snap, err := svc.Status(context.Background(), "task-42")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, snap.Status)
	assert.Equal(t, 60, snap.Progress)
}

func TestHTTPServiceRequiredInputs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/required-inputs", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]InputSpec{
			{Name: "prompt", Type: "string", Required: true},
		})
	}))
	defer server.Close()

	svc := NewHTTPService(server.URL, nil)
	specs, err := svc.RequiredInputs(context.Background())
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "prompt", specs[0].Name)
	assert.True(t, specs[0].Required)
}

func TestHTTPServiceErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   llmerrors.Kind
	}{
		{"server error is transient", http.StatusServiceUnavailable, llmerrors.KindTransient},
		{"rate limit", http.StatusTooManyRequests, llmerrors.KindRateLimit},
		{"client error is submission failure", http.StatusUnauthorized, llmerrors.KindSubmission},
		{"not found is submission failure", http.StatusNotFound, llmerrors.KindSubmission},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			defer server.Close()

			svc := NewHTTPService(server.URL, nil)
			_, err := svc.Kickoff(context.Background(), nil)
			require.Error(t, err)
			assert.Equal(t, tc.want, llmerrors.KindOf(err))
		})
	}
}

func TestHTTPServiceUnreachable(t *testing.T) {
	svc := NewHTTPService("http://127.0.0.1:1", nil)
	_, err := svc.Kickoff(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, llmerrors.KindTransient, llmerrors.KindOf(err))
}

func TestHTTPServiceKickoffMissingTaskID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	svc := NewHTTPService(server.URL, nil)
	_, err := svc.Kickoff(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, llmerrors.KindSubmission, llmerrors.KindOf(err))
}
