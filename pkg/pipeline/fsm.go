// Package pipeline runs the fixed multi-stage orchestration workflow:
// design -> delegate -> execute -> evaluate, aggregating per-stage results
// into a single report.
package pipeline

// State is one phase of the pipeline state machine.
type State string

const (
	StateInit     State = "INIT"
	StateDesign   State = "DESIGN"
	StateDelegate State = "DELEGATE"
	StateExecute  State = "EXECUTE"
	StateEvaluate State = "EVALUATE"

	// Terminal states
	StateDone   State = "DONE"
	StateFailed State = "FAILED"
)

// pipelineTransitions is the canonical transition map. The happy path is a
// straight line; FAILED is absorbing and reachable from every non-terminal
// state.
var pipelineTransitions = map[State][]State{
	StateInit:     {StateDesign, StateFailed},
	StateDesign:   {StateDelegate, StateFailed},
	StateDelegate: {StateExecute, StateFailed},
	StateExecute:  {StateEvaluate, StateFailed},
	// Evaluation is advisory: its own failure still lands in DONE.
	StateEvaluate: {StateDone, StateFailed},
	StateDone:     {},
	StateFailed:   {},
}

// ValidNextStates returns the allowed next states for a given state.
func ValidNextStates(from State) []State {
	return pipelineTransitions[from]
}

// IsValidTransition checks if a transition between two states is allowed.
func IsValidTransition(from, to State) bool {
	for _, state := range ValidNextStates(from) {
		if state == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state admits no further transitions.
func (s State) IsTerminal() bool {
	return len(pipelineTransitions[s]) == 0
}
