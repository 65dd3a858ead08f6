package utils

import (
	"strings"
	"testing"
)

func TestNewRunID(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	if !strings.HasPrefix(a, "run-") {
		t.Errorf("run ID %q lacks run- prefix", a)
	}
	if a == b {
		t.Error("run IDs are not unique")
	}
}

func TestNewSimJobID(t *testing.T) {
	id := NewSimJobID()
	if !strings.HasPrefix(id, "sim-") {
		t.Errorf("sim job ID %q lacks sim- prefix", id)
	}
}

func TestCountTokens(t *testing.T) {
	tc, err := NewTokenCounter("gpt-4")
	if err != nil {
		t.Fatalf("NewTokenCounter: %v", err)
	}

	if got := tc.CountTokens(""); got != 0 {
		t.Errorf("empty string counted %d tokens", got)
	}

	short := tc.CountTokens("hello")
	long := tc.CountTokens("hello there, this is a much longer sentence with many more words in it")
	if short <= 0 || long <= short {
		t.Errorf("token counts not increasing: short=%d long=%d", short, long)
	}
}

func TestCountTokensSimple(t *testing.T) {
	if got := CountTokensSimple("hello world"); got <= 0 {
		t.Errorf("CountTokensSimple = %d, want > 0", got)
	}
}
