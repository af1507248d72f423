// Package backup drives one archival run end to end: discovery, filtering,
// per-unit acquisition gated by the quota tracker, ledger updates and
// checkpoint commits.
package backup

import (
	"time"

	"annextube/internal/exitcode"
	"annextube/pkg/source"
)

// Status is the lifecycle state of one work unit.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Unit is one archivable video moving through the run. Discovery creates
// units pending; processing advances them to done or failed. A unit left
// in-progress was cut off mid-acquisition by interruption or exhaustion.
type Unit struct {
	Video  source.Video
	Status Status
	Err    error
}

// Outcome is the reason a run ended.
type Outcome string

const (
	// OutcomeCompleted: every candidate unit was processed.
	OutcomeCompleted Outcome = "completed"
	// OutcomeLimitReached: the configured max-items cap stopped discovery.
	OutcomeLimitReached Outcome = "limit-reached"
	// OutcomeQuotaExhausted: the API budget ran out; resumable.
	OutcomeQuotaExhausted Outcome = "quota-exhausted"
	// OutcomeInterrupted: a cancellation signal stopped the run; resumable.
	OutcomeInterrupted Outcome = "interrupted"
)

// ExitCode maps the outcome to the process exit code contract.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeQuotaExhausted:
		return exitcode.QuotaExhausted
	case OutcomeInterrupted:
		return exitcode.Interrupted
	default:
		return exitcode.Success
	}
}

// Summary reports what one run accomplished and why it ended.
type Summary struct {
	// Done is the number of units completed during this run.
	Done int
	// Failed is the number of units that exhausted their retries.
	Failed int
	// Skipped is the number of candidates already settled in the ledger.
	Skipped int
	// FilteredOut is the number of discovered items rejected by filters.
	FilteredOut int
	// QuotaUsed is the budget consumed during this run.
	QuotaUsed int
	// Elapsed is the wall-clock run duration.
	Elapsed time.Duration
	// Outcome is the reason the run ended.
	Outcome Outcome
	// Units are the discovered candidates with their final statuses,
	// in discovery order.
	Units []Unit
}
