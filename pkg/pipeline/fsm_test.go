package pipeline

import (
	"testing"
)

func TestHappyPathTransitions(t *testing.T) {
	path := []State{StateInit, StateDesign, StateDelegate, StateExecute, StateEvaluate, StateDone}
	for i := 0; i < len(path)-1; i++ {
		if !IsValidTransition(path[i], path[i+1]) {
			t.Errorf("expected %s -> %s to be valid", path[i], path[i+1])
		}
	}
}

func TestFailedReachableFromEveryNonTerminalState(t *testing.T) {
	for _, from := range []State{StateInit, StateDesign, StateDelegate, StateExecute, StateEvaluate} {
		if !IsValidTransition(from, StateFailed) {
			t.Errorf("expected %s -> FAILED to be valid", from)
		}
	}
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	for _, terminal := range []State{StateDone, StateFailed} {
		if !terminal.IsTerminal() {
			t.Errorf("%s not reported terminal", terminal)
		}
		for _, to := range []State{StateInit, StateDesign, StateDelegate, StateExecute, StateEvaluate, StateDone, StateFailed} {
			if IsValidTransition(terminal, to) {
				t.Errorf("unexpected transition %s -> %s", terminal, to)
			}
		}
	}
}

func TestNoSkippingStages(t *testing.T) {
	cases := []struct{ from, to State }{
		{StateInit, StateExecute},
		{StateDesign, StateEvaluate},
		{StateDelegate, StateDone},
		{StateExecute, StateDone},
	}
	for _, tc := range cases {
		if IsValidTransition(tc.from, tc.to) {
			t.Errorf("unexpected transition %s -> %s", tc.from, tc.to)
		}
	}
}
