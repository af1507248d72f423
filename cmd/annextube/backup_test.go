package main

import (
	"strings"
	"testing"
)

func TestInterruptedSummaryReflectsCommitState(t *testing.T) {
	committed := interruptedSummary(12, true)
	if !strings.Contains(committed, "progress committed") {
		t.Errorf("expected commit notice, got %q", committed)
	}

	uncommitted := interruptedSummary(12, false)
	if !strings.Contains(uncommitted, "NOT committed") {
		t.Errorf("expected uncommitted notice, got %q", uncommitted)
	}
	if !strings.Contains(uncommitted, "run again to resume") {
		t.Errorf("expected resume hint, got %q", uncommitted)
	}
}
