package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"agentcore/pkg/agent/llmerrors"
	"agentcore/pkg/agent/middleware/metrics"
	"agentcore/pkg/logx"
)

// Options configures polling cadence and budgets.
type Options struct {
	InitialInterval time.Duration // first wait between polls
	MaxInterval     time.Duration // cap on the grown interval
	GrowthFactor    float64       // interval multiplier once the job is past half done
	MaxAttempts     int           // polling rounds before the client gives up
	ExtraRetries    int           // immediate status retries within one failed round

	SubmitAttempts int           // kickoff attempts before degrading to simulation
	SubmitBackoff  time.Duration // base backoff between kickoff attempts
}

// DefaultOptions matches the service's documented polling envelope.
var DefaultOptions = Options{
	InitialInterval: 5 * time.Second,
	MaxInterval:     15 * time.Second,
	GrowthFactor:    1.5,
	MaxAttempts:     60,
	ExtraRetries:    2,
	SubmitAttempts:  3,
	SubmitBackoff:   1 * time.Second,
}

// Poller submits jobs and drives them to a terminal status. Each job has at
// most one active poller loop at a time; the ownership registry rejects a
// second concurrent Poll or Run for the same job ID.
type Poller struct {
	service  Service
	sim      *Simulator
	simulate bool // explicit simulate mode: never touch the real service
	opts     Options
	logger   *logx.Logger
	recorder metrics.Recorder

	mu    sync.Mutex
	owned map[string]struct{}
}

// New creates a poller over the given service. With simulate set, all jobs
// run against the in-process simulator and the real service is never called.
func New(service Service, simulate bool, opts Options, recorder metrics.Recorder) *Poller {
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = DefaultOptions.InitialInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = DefaultOptions.MaxInterval
	}
	if opts.GrowthFactor < 1 {
		opts.GrowthFactor = DefaultOptions.GrowthFactor
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultOptions.MaxAttempts
	}
	if opts.SubmitAttempts <= 0 {
		opts.SubmitAttempts = DefaultOptions.SubmitAttempts
	}
	if opts.SubmitBackoff <= 0 {
		opts.SubmitBackoff = DefaultOptions.SubmitBackoff
	}
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &Poller{
		service:  service,
		sim:      NewSimulator(),
		simulate: simulate,
		opts:     opts,
		logger:   logx.NewLogger("jobs"),
		recorder: recorder,
		owned:    make(map[string]struct{}),
	}
}

// serviceFor routes simulated jobs to the simulator and everything else to
// the real service.
func (p *Poller) serviceFor(job *Job) Service {
	if job.Simulated {
		return p.sim
	}
	return p.service
}

func (p *Poller) acquire(jobID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, held := p.owned[jobID]; held {
		return llmerrors.New(llmerrors.KindPrecondition,
			fmt.Sprintf("job %s is already owned by another poll loop", jobID))
	}
	p.owned[jobID] = struct{}{}
	return nil
}

func (p *Poller) release(jobID string) {
	p.mu.Lock()
	delete(p.owned, jobID)
	p.mu.Unlock()
}

// Submit kicks off a new job and returns it in pending state. In simulate
// mode the job runs against the simulator from the start. Otherwise kickoff
// is retried with backoff on transient failures; if every attempt fails the
// run degrades to a simulated job and the warning is carried on the Job
// rather than failing the caller.
func (p *Poller) Submit(ctx context.Context, inputs map[string]any) (*Job, error) {
	if p.simulate {
		return p.submitSimulated(ctx, inputs, "")
	}

	id, err := p.kickoffWithRetry(ctx, inputs)
	if err == nil {
		p.logger.Info("submitted job %s", id)
		return &Job{ID: id, Inputs: inputs, Status: StatusPending}, nil
	}
	if llmerrors.IsCancelled(err) {
		return nil, err
	}

	warning := fmt.Sprintf("submission failed after %d attempts, degrading to simulated execution: %v",
		p.opts.SubmitAttempts, err)
	p.logger.Warn("%s", warning)
	return p.submitSimulated(ctx, inputs, warning)
}

func (p *Poller) submitSimulated(ctx context.Context, inputs map[string]any, warning string) (*Job, error) {
	id, err := p.sim.Kickoff(ctx, inputs)
	if err != nil {
		return nil, err
	}
	p.logger.Info("submitted simulated job %s", id)
	return &Job{ID: id, Inputs: inputs, Status: StatusPending, Simulated: true, Warning: warning}, nil
}

// kickoffWithRetry is the dispatcher-shaped submission loop: fixed attempt
// budget, exponential backoff, retry only on retryable kinds.
func (p *Poller) kickoffWithRetry(ctx context.Context, inputs map[string]any) (string, error) {
	var lastErr error
	for attempt := 0; attempt < p.opts.SubmitAttempts; attempt++ {
		if attempt > 0 {
			delay := p.opts.SubmitBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return "", llmerrors.NewWithCause(llmerrors.KindCancelled, ctx.Err(), "submission cancelled")
			case <-time.After(delay):
			}
		}

		id, err := p.service.Kickoff(ctx, inputs)
		if err == nil {
			return id, nil
		}
		if llmerrors.IsCancelled(err) || ctx.Err() != nil {
			return "", err
		}
		lastErr = err
		var cerr *llmerrors.Error
		if errors.As(err, &cerr) && !cerr.IsRetryable() {
			break
		}
		p.logger.Debug("kickoff attempt %d failed: %v", attempt+1, err)
	}
	return "", llmerrors.NewWithCause(llmerrors.KindSubmission, lastErr, "kickoff exhausted retries")
}

// RequiredInputs proxies the service's kickoff schema.
func (p *Poller) RequiredInputs(ctx context.Context) ([]InputSpec, error) {
	if p.simulate {
		return p.sim.RequiredInputs(ctx)
	}
	return p.service.RequiredInputs(ctx)
}

// Poll performs exactly one status check and folds the result into the job.
// A job already in a terminal state returns its cached snapshot with no
// network activity.
func (p *Poller) Poll(ctx context.Context, job *Job) (Snapshot, error) {
	if job.Status.Terminal() {
		return job.snapshot(), nil
	}
	if err := p.acquire(job.ID); err != nil {
		return Snapshot{}, err
	}
	defer p.release(job.ID)

	snap, err := p.serviceFor(job).Status(ctx, job.ID)
	p.recorder.ObservePoll(job.ID, err == nil)
	if err != nil {
		return job.snapshot(), err
	}
	job.apply(snap)
	return job.snapshot(), nil
}

// schedule is the resumable polling state: everything the loop needs to pick
// up where it left off lives in these three fields, driven by a single timer.
type schedule struct {
	nextDeadline time.Time
	interval     time.Duration
	attempt      int
}

// Run drives the job to a terminal status. The interval starts at the
// configured initial value and grows by the growth factor once reported
// progress exceeds 50, capped at the maximum. Each failed status round gets
// ExtraRetries immediate re-checks before consuming an attempt. When the
// attempt budget runs out first, Run returns a PollingExhausted error; the
// remote job may well still be running.
func (p *Poller) Run(ctx context.Context, job *Job) (Snapshot, error) {
	if job.Status.Terminal() {
		return job.snapshot(), nil
	}
	if err := p.acquire(job.ID); err != nil {
		return Snapshot{}, err
	}
	defer p.release(job.ID)

	svc := p.serviceFor(job)
	sched := schedule{nextDeadline: time.Now(), interval: p.opts.InitialInterval}
	timer := time.NewTimer(0)
	defer timer.Stop()

	for sched.attempt < p.opts.MaxAttempts {
		timer.Reset(time.Until(sched.nextDeadline))
		select {
		case <-ctx.Done():
			return job.snapshot(), llmerrors.NewWithCause(llmerrors.KindCancelled, ctx.Err(),
				fmt.Sprintf("polling of job %s cancelled", job.ID))
		case <-timer.C:
		}

		snap, err := p.pollRound(ctx, svc, job)
		sched.attempt++
		if err != nil {
			if llmerrors.IsCancelled(err) || ctx.Err() != nil {
				return job.snapshot(), llmerrors.NewWithCause(llmerrors.KindCancelled, err,
					fmt.Sprintf("polling of job %s cancelled", job.ID))
			}
			p.logger.Warn("poll round %d for job %s failed: %v", sched.attempt, job.ID, err)
		} else {
			job.apply(snap)
			if job.Status.Terminal() {
				p.logger.Info("job %s finished: %s", job.ID, job.Status)
				return job.snapshot(), nil
			}
			if snap.Progress > 50 {
				sched.interval = p.grow(sched.interval)
			}
		}
		sched.nextDeadline = time.Now().Add(sched.interval)
	}

	return job.snapshot(), llmerrors.New(llmerrors.KindPollingExhausted,
		fmt.Sprintf("job %s still %s after %d polls", job.ID, job.Status, p.opts.MaxAttempts))
}

// pollRound issues one status check plus up to ExtraRetries immediate
// re-checks when a check fails with a retryable kind. The round as a whole
// consumes one attempt.
func (p *Poller) pollRound(ctx context.Context, svc Service, job *Job) (Snapshot, error) {
	var lastErr error
	for try := 0; try <= p.opts.ExtraRetries; try++ {
		snap, err := svc.Status(ctx, job.ID)
		p.recorder.ObservePoll(job.ID, err == nil)
		if err == nil {
			return snap, nil
		}
		if llmerrors.IsCancelled(err) || ctx.Err() != nil {
			return Snapshot{}, err
		}
		lastErr = err
		var cerr *llmerrors.Error
		if errors.As(err, &cerr) && !cerr.IsRetryable() {
			break
		}
	}
	return Snapshot{}, lastErr
}

func (p *Poller) grow(interval time.Duration) time.Duration {
	grown := time.Duration(float64(interval) * p.opts.GrowthFactor)
	if grown > p.opts.MaxInterval {
		return p.opts.MaxInterval
	}
	return grown
}
