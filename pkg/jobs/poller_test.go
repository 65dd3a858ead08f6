package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentcore/pkg/agent/llmerrors"
)

// fakeService scripts kickoff and status responses and counts calls.
type fakeService struct {
	mu           sync.Mutex
	kickoff      func(call int) (string, error)
	status       func(call int) (Snapshot, error)
	kickoffCalls int
	statusCalls  int
}

func (f *fakeService) RequiredInputs(_ context.Context) ([]InputSpec, error) {
	return nil, nil
}

func (f *fakeService) Kickoff(_ context.Context, _ map[string]any) (string, error) {
	f.mu.Lock()
	call := f.kickoffCalls
	f.kickoffCalls++
	f.mu.Unlock()
	return f.kickoff(call)
}

func (f *fakeService) Status(_ context.Context, _ string) (Snapshot, error) {
	f.mu.Lock()
	call := f.statusCalls
	f.statusCalls++
	f.mu.Unlock()
	return f.status(call)
}

func (f *fakeService) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kickoffCalls, f.statusCalls
}

// fastOptions keeps test runs quick without changing loop semantics.
func fastOptions() Options {
	return Options{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		GrowthFactor:    1.5,
		MaxAttempts:     60,
		ExtraRetries:    2,
		SubmitAttempts:  3,
		SubmitBackoff:   time.Millisecond,
	}
}

func TestRunDrivesJobToCompletion(t *testing.T) {
	script := []Snapshot{
		{Status: StatusPending},
		{Status: StatusInProgress, Progress: 30},
		{Status: StatusInProgress, Progress: 60},
		{Status: StatusCompleted, Progress: 100, Result: "done"},
	}
	svc := &fakeService{status: func(call int) (Snapshot, error) {
		if call >= len(script) {
			t.Errorf("unexpected poll %d after terminal status", call)
			return script[len(script)-1], nil
		}
		return script[call], nil
	}}
	poller := New(svc, false, fastOptions(), nil)

	job := &Job{ID: "task-1", Status: StatusPending}
	snap, err := poller.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "done", snap.Result)

	_, statusCalls := svc.calls()
	assert.Equal(t, len(script), statusCalls)
}

func TestRunTerminalStatusIsCachedNoNetwork(t *testing.T) {
	svc := &fakeService{status: func(int) (Snapshot, error) {
		t.Error("status called for a terminal job")
		return Snapshot{}, nil
	}}
	poller := New(svc, false, fastOptions(), nil)

	job := &Job{ID: "task-1", Status: StatusCompleted, Progress: 100, Result: "cached"}
	snap, err := poller.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "cached", snap.Result)

	snap, err = poller.Poll(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, snap.Status)

	_, statusCalls := svc.calls()
	assert.Zero(t, statusCalls)
}

func TestRunExhaustsAttemptBudget(t *testing.T) {
	svc := &fakeService{status: func(int) (Snapshot, error) {
		return Snapshot{Status: StatusPending}, nil
	}}
	opts := fastOptions()
	opts.MaxAttempts = 3
	poller := New(svc, false, opts, nil)

	job := &Job{ID: "task-1", Status: StatusPending}
	snap, err := poller.Run(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, llmerrors.KindPollingExhausted, llmerrors.KindOf(err))
	assert.Equal(t, StatusPending, snap.Status)

	_, statusCalls := svc.calls()
	assert.Equal(t, 3, statusCalls)
}

func TestRunRetriesFailedPollImmediately(t *testing.T) {
	svc := &fakeService{status: func(int) (Snapshot, error) {
		return Snapshot{}, llmerrors.New(llmerrors.KindTransient, "blip")
	}}
	opts := fastOptions()
	opts.MaxAttempts = 1
	poller := New(svc, false, opts, nil)

	job := &Job{ID: "task-1", Status: StatusPending}
	_, err := poller.Run(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, llmerrors.KindPollingExhausted, llmerrors.KindOf(err))

	// One attempt = one poll plus two immediate retries.
	_, statusCalls := svc.calls()
	assert.Equal(t, 3, statusCalls)
}

func TestRunNonRetryablePollNotRecheckedImmediately(t *testing.T) {
	svc := &fakeService{status: func(int) (Snapshot, error) {
		return Snapshot{}, llmerrors.NewWithStatus(llmerrors.KindSubmission, 404, "unknown task")
	}}
	opts := fastOptions()
	opts.MaxAttempts = 1
	poller := New(svc, false, opts, nil)

	job := &Job{ID: "task-1", Status: StatusPending}
	_, err := poller.Run(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, llmerrors.KindPollingExhausted, llmerrors.KindOf(err))

	// Immediate re-checks are for transient failures only.
	_, statusCalls := svc.calls()
	assert.Equal(t, 1, statusCalls)
}

func TestRunCancellationStopsPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := &fakeService{status: func(call int) (Snapshot, error) {
		if call == 1 {
			cancel()
		}
		return Snapshot{Status: StatusInProgress, Progress: 10}, nil
	}}
	poller := New(svc, false, fastOptions(), nil)

	job := &Job{ID: "task-1", Status: StatusPending}
	_, err := poller.Run(ctx, job)
	require.Error(t, err)
	assert.True(t, llmerrors.IsCancelled(err))

	_, callsAtCancel := svc.calls()
	time.Sleep(20 * time.Millisecond)
	_, callsAfter := svc.calls()
	assert.Equal(t, callsAtCancel, callsAfter, "polls continued after cancellation")
}

func TestRunRejectsSecondOwner(t *testing.T) {
	block := make(chan struct{})
	svc := &fakeService{status: func(int) (Snapshot, error) {
		<-block
		return Snapshot{Status: StatusCompleted, Progress: 100}, nil
	}}
	poller := New(svc, false, fastOptions(), nil)

	job := &Job{ID: "task-1", Status: StatusPending}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = poller.Run(context.Background(), job)
	}()

	// Wait for the first owner to take the job, then try to poll it.
	require.Eventually(t, func() bool {
		_, statusCalls := svc.calls()
		return statusCalls > 0 || pollerOwns(poller, job.ID)
	}, time.Second, time.Millisecond)

	_, err := poller.Poll(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, llmerrors.KindPrecondition, llmerrors.KindOf(err))

	close(block)
	<-done
}

func pollerOwns(p *Poller, jobID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, held := p.owned[jobID]
	return held
}

func TestIntervalGrowth(t *testing.T) {
	opts := fastOptions()
	opts.InitialInterval = 5 * time.Second
	opts.MaxInterval = 15 * time.Second
	poller := New(&fakeService{}, false, opts, nil)

	// 5s -> 7.5s -> 11.25s -> 15s (capped) -> 15s
	intervals := []time.Duration{opts.InitialInterval}
	for i := 0; i < 4; i++ {
		intervals = append(intervals, poller.grow(intervals[len(intervals)-1]))
	}
	for i := 1; i < len(intervals); i++ {
		assert.GreaterOrEqual(t, intervals[i], intervals[i-1], "interval shrank at step %d", i)
		assert.LessOrEqual(t, intervals[i], opts.MaxInterval)
	}
	assert.Equal(t, opts.MaxInterval, intervals[len(intervals)-1])
}

func TestRunIntervalGrowsOnlyPastHalfProgress(t *testing.T) {
	script := []Snapshot{
		{Status: StatusInProgress, Progress: 10},
		{Status: StatusInProgress, Progress: 30},
		{Status: StatusInProgress, Progress: 60},
		{Status: StatusInProgress, Progress: 90},
		{Status: StatusCompleted, Progress: 100},
	}
	var polledAt []time.Time
	svc := &fakeService{status: func(call int) (Snapshot, error) {
		polledAt = append(polledAt, time.Now())
		require.Less(t, call, len(script))
		return script[call], nil
	}}
	opts := fastOptions()
	opts.InitialInterval = 20 * time.Millisecond
	opts.MaxInterval = 500 * time.Millisecond
	opts.GrowthFactor = 4
	poller := New(svc, false, opts, nil)

	job := &Job{ID: "task-1", Status: StatusPending}
	_, err := poller.Run(context.Background(), job)
	require.NoError(t, err)
	require.Len(t, polledAt, len(script))

	gaps := make([]time.Duration, 0, len(polledAt)-1)
	for i := 1; i < len(polledAt); i++ {
		gaps = append(gaps, polledAt[i].Sub(polledAt[i-1]))
	}
	// Progress at or below 50 leaves the interval at its initial value.
	assert.Less(t, gaps[1], 80*time.Millisecond, "interval grew at progress 30")
	// Progress 60 grows it to 80ms, progress 90 to 320ms.
	assert.GreaterOrEqual(t, gaps[2], 80*time.Millisecond)
	assert.GreaterOrEqual(t, gaps[3], 320*time.Millisecond)
}

func TestSubmitSuccess(t *testing.T) {
	svc := &fakeService{kickoff: func(int) (string, error) { return "task-7", nil }}
	poller := New(svc, false, fastOptions(), nil)

	job, err := poller.Submit(context.Background(), map[string]any{"prompt": "x"})
	require.NoError(t, err)
	assert.Equal(t, "task-7", job.ID)
	assert.Equal(t, StatusPending, job.Status)
	assert.False(t, job.Simulated)
	assert.Empty(t, job.Warning)
}

func TestSubmitDegradesToSimulation(t *testing.T) {
	svc := &fakeService{kickoff: func(int) (string, error) {
		return "", llmerrors.New(llmerrors.KindTransient, "connection refused")
	}}
	poller := New(svc, false, fastOptions(), nil)

	job, err := poller.Submit(context.Background(), map[string]any{"prompt": "x"})
	require.NoError(t, err, "degraded submission must not fail the caller")
	assert.True(t, job.Simulated)
	assert.NotEmpty(t, job.Warning)

	kickoffCalls, _ := svc.calls()
	assert.Equal(t, 3, kickoffCalls)
}

func TestSubmitNonRetryableFailsFast(t *testing.T) {
	svc := &fakeService{kickoff: func(int) (string, error) {
		return "", llmerrors.NewWithStatus(llmerrors.KindSubmission, 401, "bad credentials")
	}}
	poller := New(svc, false, fastOptions(), nil)

	job, err := poller.Submit(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, job.Simulated)

	kickoffCalls, _ := svc.calls()
	assert.Equal(t, 1, kickoffCalls, "non-retryable kickoff error must not be retried")
}

func TestSubmitSimulateModeNeverTouchesService(t *testing.T) {
	svc := &fakeService{kickoff: func(int) (string, error) {
		t.Error("real kickoff called in simulate mode")
		return "", nil
	}}
	poller := New(svc, true, fastOptions(), nil)

	job, err := poller.Submit(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, job.Simulated)
	assert.Empty(t, job.Warning, "explicit simulate mode is not a degrade")

	kickoffCalls, _ := svc.calls()
	assert.Zero(t, kickoffCalls)
}

func TestRunSimulatedJobCompletes(t *testing.T) {
	poller := New(&fakeService{}, true, fastOptions(), nil)
	poller.sim = newSimulator(time.Millisecond, time.Now)

	job, err := poller.Submit(context.Background(), nil)
	require.NoError(t, err)

	snap, err := poller.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 100, snap.Progress)
}
