package logx

import (
	"testing"
	"time"
)

func TestRecentEntriesCapturesLogs(t *testing.T) {
	logger := NewLogger("test-component")
	before := time.Now().UTC().Add(-time.Second)

	logger.Info("hello %s", "world")

	entries := RecentEntries(before)
	if len(entries) == 0 {
		t.Fatal("no entries captured")
	}
	last := entries[len(entries)-1]
	if last.Component != "test-component" {
		t.Errorf("Component = %q", last.Component)
	}
	if last.Level != string(LevelInfo) {
		t.Errorf("Level = %q", last.Level)
	}
	if last.Message != "hello world" {
		t.Errorf("Message = %q", last.Message)
	}
}

func TestDebugSuppressedByDefault(t *testing.T) {
	SetDebug(false)
	defer SetDebug(false)

	logger := NewLogger("debug-test")
	before := time.Now().UTC().Add(-time.Second)
	logger.Debug("invisible")

	for _, e := range RecentEntries(before) {
		if e.Component == "debug-test" && e.Message == "invisible" {
			t.Fatal("debug entry logged while debug disabled")
		}
	}

	SetDebug(true)
	logger.Debug("visible")
	found := false
	for _, e := range RecentEntries(before) {
		if e.Component == "debug-test" && e.Message == "visible" {
			found = true
		}
	}
	if !found {
		t.Error("debug entry missing while debug enabled")
	}
}

func TestWithComponent(t *testing.T) {
	logger := NewLogger("parent")
	child := logger.WithComponent("child")
	if child.Component() != "child" {
		t.Errorf("Component() = %q", child.Component())
	}
}
