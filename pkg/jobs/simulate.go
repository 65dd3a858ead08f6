package jobs

import (
	"context"
	"sync"
	"time"

	"agentcore/pkg/utils"
)

// simStep is the default wall-clock width of one simulated lifecycle stage.
const simStep = 2 * time.Second

// simStages is the fixed lifecycle script a simulated job walks through.
// Stage i is reported while elapsed < (i+1) * step; past the last stage the
// job is completed. Deterministic for a given clock.
var simStages = []Snapshot{
	{Status: StatusPending, Progress: 0},
	{Status: StatusInProgress, Progress: 25},
	{Status: StatusInProgress, Progress: 60},
	{Status: StatusInProgress, Progress: 90},
}

var simDone = Snapshot{
	Status:   StatusCompleted,
	Progress: 100,
	Result:   "Simulated execution completed successfully.",
}

// Simulator implements Service entirely in-process. It exists for local runs
// without a reachable execution service and as the degradation target when
// real submission keeps failing.
type Simulator struct {
	step time.Duration
	now  func() time.Time

	mu     sync.Mutex
	starts map[string]time.Time
}

// NewSimulator returns a simulator with the default stage width.
func NewSimulator() *Simulator {
	return newSimulator(simStep, time.Now)
}

// newSimulator allows tests to shrink the stage width and inject a clock.
func newSimulator(step time.Duration, now func() time.Time) *Simulator {
	return &Simulator{
		step:   step,
		now:    now,
		starts: make(map[string]time.Time),
	}
}

// RequiredInputs mirrors the real service's kickoff schema.
func (s *Simulator) RequiredInputs(_ context.Context) ([]InputSpec, error) {
	return []InputSpec{
		{Name: "prompt", Type: "string", Description: "the work to perform", Required: true},
		{Name: "role", Type: "string", Description: "agent role executing the work", Required: false},
	}, nil
}

// Kickoff assigns a simulated job ID and starts its clock.
func (s *Simulator) Kickoff(_ context.Context, _ map[string]any) (string, error) {
	id := utils.NewSimJobID()
	s.mu.Lock()
	s.starts[id] = s.now()
	s.mu.Unlock()
	return id, nil
}

// Status reports the stage the job has reached by elapsed time. A job ID the
// simulator never issued is reported as failed rather than erroring, so a
// stale ID cannot wedge a polling loop.
func (s *Simulator) Status(_ context.Context, jobID string) (Snapshot, error) {
	s.mu.Lock()
	start, ok := s.starts[jobID]
	s.mu.Unlock()
	if !ok {
		return Snapshot{Status: StatusFailed, Error: "unknown simulated job " + jobID}, nil
	}

	elapsed := s.now().Sub(start)
	stage := int(elapsed / s.step)
	if stage >= len(simStages) {
		return simDone, nil
	}
	return simStages[stage], nil
}
