package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"agentcore/pkg/agent/llm"
	"agentcore/pkg/agent/llmerrors"
	"agentcore/pkg/compose"
	"agentcore/pkg/dispatch"
	"agentcore/pkg/logx"
)

// Agent is a role-tagged participant in the pipeline.
type Agent struct {
	Name  string
	Role  compose.Role
	Model string
}

// OutcomeStatus is the per-task result status.
type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeFailed    OutcomeStatus = "failed"
)

// TaskOutcome is the result of one delegated task. On failure Result carries
// the error text.
type TaskOutcome struct {
	Description  string        `json:"description"`
	AssignedRole compose.Role  `json:"assigned_role"`
	Status       OutcomeStatus `json:"status"`
	Result       string        `json:"result"`
}

// Report aggregates everything a run produced. Results preserve task-list
// order regardless of execution interleaving. A report with failed outcomes
// is still a valid, complete report.
type Report struct {
	Plan       string        `json:"plan"`
	Results    []TaskOutcome `json:"results"`
	Evaluation string        `json:"evaluation"`
}

// evaluationFallback replaces the evaluation text when the evaluate stage
// itself fails. Evaluation is advisory and never blocks delivering results.
const evaluationFallback = "Evaluation unavailable; all task results are included above."

// Dispatcher is the completion-call surface the pipeline needs. Satisfied by
// dispatch.Dispatcher; tests substitute a counting fake.
type Dispatcher interface {
	Dispatch(ctx context.Context, req llm.CompletionRequest, budget dispatch.Budget) (llm.CompletionResponse, error)
}

// Config carries a run's inputs.
type Config struct {
	Agents      []Agent
	Description string // project description, must be non-empty
	Budget      dispatch.Budget
}

// task is one delegated unit of work, bound to an agent at delegate time.
type task struct {
	description string
	agent       Agent
}

// Pipeline drives one run through the fixed stages. Single-use: construct a
// new Pipeline per run.
type Pipeline struct {
	composer   *compose.Composer
	dispatcher Dispatcher
	cfg        Config
	logger     *logx.Logger

	mu    sync.Mutex
	state State
	ran   bool
}

// New creates a pipeline in INIT.
func New(composer *compose.Composer, dispatcher Dispatcher, cfg Config) *Pipeline {
	return &Pipeline{
		composer:   composer,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logx.NewLogger("pipeline"),
		state:      StateInit,
	}
}

// State returns the pipeline's current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) transition(to State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !IsValidTransition(p.state, to) {
		p.logger.Error("illegal transition %s -> %s ignored", p.state, to)
		return
	}
	p.logger.Debug("transition %s -> %s", p.state, to)
	p.state = to
}

// Run executes all stages and returns the aggregated report. Per-task
// failures in EXECUTE do not fail the run: they appear as failed outcomes in
// the report and Run returns nil. Only precondition and design failures (and
// cancellation) are run-fatal.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	p.mu.Lock()
	if p.ran {
		p.mu.Unlock()
		return nil, llmerrors.New(llmerrors.KindPrecondition, "pipeline is single-use; construct a new one per run")
	}
	p.ran = true
	p.mu.Unlock()

	architect, err := p.checkPreconditions()
	if err != nil {
		p.transition(StateFailed)
		return nil, err
	}
	p.transition(StateDesign)

	report := &Report{}
	plan, err := p.design(ctx, architect)
	if err != nil {
		p.transition(StateFailed)
		return nil, err
	}
	report.Plan = plan
	p.transition(StateDelegate)

	tasks := p.delegate()
	p.transition(StateExecute)

	report.Results = p.execute(ctx, plan, tasks)
	p.transition(StateEvaluate)

	report.Evaluation = p.evaluate(ctx, architect, report.Results)
	p.transition(StateDone)
	p.logger.Info("pipeline done: %d tasks, %d failed", len(report.Results), countFailed(report.Results))
	return report, nil
}

// checkPreconditions validates the run before any dispatch happens: an
// architect agent must be present and the description non-empty.
func (p *Pipeline) checkPreconditions() (Agent, error) {
	if strings.TrimSpace(p.cfg.Description) == "" {
		return Agent{}, llmerrors.New(llmerrors.KindPrecondition, "project description is empty")
	}
	for _, a := range p.cfg.Agents {
		if a.Role == compose.RoleArchitect {
			return a, nil
		}
	}
	return Agent{}, llmerrors.New(llmerrors.KindPrecondition, "no agent with the architect role")
}

// design asks the architect for a design narrative covering the project.
func (p *Pipeline) design(ctx context.Context, architect Agent) (string, error) {
	resp, err := p.call(ctx, architect, compose.Input{
		Role:       architect.Role,
		Task:       "Produce a design for the project below.",
		UserPrompt: p.cfg.Description,
	})
	if err != nil {
		return "", fmt.Errorf("design stage: %w", err)
	}
	return resp.Content, nil
}

// delegate derives the static task list and assigns tasks round-robin across
// the non-architect agents.
func (p *Pipeline) delegate() []task {
	var workers []Agent
	for _, a := range p.cfg.Agents {
		if a.Role != compose.RoleArchitect {
			workers = append(workers, a)
		}
	}
	if len(workers) == 0 {
		p.logger.Warn("no non-architect agents; nothing to delegate")
		return nil
	}

	descriptions := make([]string, len(workers))
	for i, w := range workers {
		descriptions[i] = fmt.Sprintf("Implement the %s portion of the plan.", w.Role)
	}

	tasks := make([]task, len(descriptions))
	for i, desc := range descriptions {
		tasks[i] = task{description: desc, agent: workers[i%len(workers)]}
	}
	return tasks
}

// execute fans the tasks out concurrently, one dispatch per task. A failed
// task produces a failed outcome with the error text as its result and does
// not abort siblings. Results land in task-list order.
func (p *Pipeline) execute(ctx context.Context, plan string, tasks []task) []TaskOutcome {
	outcomes := make([]TaskOutcome, len(tasks))
	var wg sync.WaitGroup
	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t task) {
			defer wg.Done()
			outcome := TaskOutcome{Description: t.description, AssignedRole: t.agent.Role}
			resp, err := p.call(ctx, t.agent, compose.Input{
				Role:       t.agent.Role,
				Task:       t.description,
				UserPrompt: "Carry out your assigned task against the plan provided in context.",
				Context:    plan,
			})
			if err != nil {
				outcome.Status = OutcomeFailed
				outcome.Result = err.Error()
				p.logger.Warn("task %q failed: %v", t.description, err)
			} else {
				outcome.Status = OutcomeCompleted
				outcome.Result = resp.Content
			}
			outcomes[i] = outcome
		}(i, t)
	}
	wg.Wait()
	return outcomes
}

// evaluate asks the architect to summarize all task results. Its failure is
// absorbed: the report gets a fixed fallback evaluation instead.
func (p *Pipeline) evaluate(ctx context.Context, architect Agent, outcomes []TaskOutcome) string {
	var b strings.Builder
	for _, o := range outcomes {
		fmt.Fprintf(&b, "## %s (%s, %s)\n%s\n\n", o.Description, o.AssignedRole, o.Status, o.Result)
	}

	resp, err := p.call(ctx, architect, compose.Input{
		Role:       architect.Role,
		Task:       "Evaluate the task results below and summarize the overall outcome.",
		UserPrompt: b.String(),
	})
	if err != nil {
		p.logger.Warn("evaluate stage failed, using fallback: %v", err)
		return evaluationFallback
	}
	return resp.Content
}

func (p *Pipeline) call(ctx context.Context, agent Agent, in compose.Input) (llm.CompletionResponse, error) {
	messages, err := p.composer.Compose(in)
	if err != nil {
		return llm.CompletionResponse{}, err
	}
	req := llm.CompletionRequest{
		Model:       agent.Model,
		Messages:    messages,
		Temperature: llm.TemperatureDefault,
		MaxTokens:   llm.DefaultMaxTokens,
	}
	return p.dispatcher.Dispatch(ctx, req, p.cfg.Budget)
}

func countFailed(outcomes []TaskOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == OutcomeFailed {
			n++
		}
	}
	return n
}
