package jobs

import (
	"testing"
)

func TestValidTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusFailed, true},
		{StatusInProgress, StatusPending, false},
		{StatusCompleted, StatusInProgress, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusPending, false},
		{StatusPending, StatusPending, true},
		{StatusCompleted, StatusCompleted, false},
	}
	for _, tc := range cases {
		if got := ValidTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("ValidTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	if StatusPending.Terminal() || StatusInProgress.Terminal() {
		t.Error("non-terminal statuses reported terminal")
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Error("terminal statuses not reported terminal")
	}
}

func TestApplyMonotonic(t *testing.T) {
	job := &Job{ID: "j1", Status: StatusPending}

	job.apply(Snapshot{Status: StatusInProgress, Progress: 40})
	if job.Status != StatusInProgress || job.Progress != 40 {
		t.Fatalf("got %s %d%%, want in_progress 40%%", job.Status, job.Progress)
	}

	// A stale snapshot must not regress status or progress.
	job.apply(Snapshot{Status: StatusPending, Progress: 10})
	if job.Status != StatusInProgress || job.Progress != 40 {
		t.Errorf("stale snapshot regressed job to %s %d%%", job.Status, job.Progress)
	}

	job.apply(Snapshot{Status: StatusCompleted, Result: "done"})
	if job.Status != StatusCompleted || job.Result != "done" {
		t.Fatalf("got %s %q, want completed with result", job.Status, job.Result)
	}
	if job.Progress != 100 {
		t.Errorf("completed job progress = %d, want 100", job.Progress)
	}

	// Terminal is final: further snapshots are ignored entirely.
	job.apply(Snapshot{Status: StatusFailed, Error: "late failure"})
	if job.Status != StatusCompleted || job.Error != "" {
		t.Errorf("terminal job mutated: %s error=%q", job.Status, job.Error)
	}
}
