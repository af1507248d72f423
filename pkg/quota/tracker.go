// Package quota tracks the remaining budget of the daily-replenished API
// allowance and decides whether a call may proceed, should wait for the
// window to roll over, or must abort the run.
package quota

import (
	"sync"
	"time"

	"annextube/pkg/logger"
)

// CallKind identifies a remote call category for cost lookup.
type CallKind string

const (
	CallList     CallKind = "list"
	CallMetadata CallKind = "metadata"
	CallCaptions CallKind = "captions"
	CallComments CallKind = "comments"
)

// State is the outcome of a reservation attempt.
type State int

const (
	// Granted means the cost was debited and the call may proceed.
	Granted State = iota
	// MustWait means the budget is insufficient but the window rolls over
	// within the configured maximum wait; retry after Decision.Wait.
	MustWait
	// Exhausted means the budget is insufficient and waiting is disabled or
	// would exceed the maximum wait; the run must stop.
	Exhausted
)

func (s State) String() string {
	switch s {
	case Granted:
		return "granted"
	case MustWait:
		return "must_wait"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Decision is the tracker's answer to a reservation attempt.
type Decision struct {
	State State
	// Wait is the time until the window resets; set when State is MustWait.
	Wait time.Duration
}

// Options configures a Tracker.
type Options struct {
	// DailyLimit is the full budget credited at every window rollover.
	DailyLimit int
	// Costs maps call kinds to their cost in budget units. Kinds not in the
	// table cost DefaultCost.
	Costs map[CallKind]int
	// Period is the replenishment period (one day for the public API).
	Period time.Duration
	// WaitForReset enables MustWait decisions instead of Exhausted.
	WaitForReset bool
	// MaxWait bounds how long a MustWait decision may ask the caller to
	// block; longer predicted waits turn into Exhausted.
	MaxWait time.Duration
}

// DefaultCost applies to call kinds missing from the cost table.
const DefaultCost = 1

// Tracker models the remaining budget within the current replenishment
// window. All mutation happens through Reserve, Release and ReportExceeded.
type Tracker struct {
	opts      Options
	remaining int
	resetAt   time.Time
	used      int
	log       logger.Logger

	now func() time.Time

	mu sync.Mutex
}

// NewTracker creates a tracker with a full budget and a predicted reset one
// period from now.
func NewTracker(opts Options, log logger.Logger) *Tracker {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Period <= 0 {
		opts.Period = 24 * time.Hour
	}
	t := &Tracker{
		opts: opts,
		log:  log,
		now:  time.Now,
	}
	t.remaining = opts.DailyLimit
	t.resetAt = t.now().Add(opts.Period)
	return t
}

// Cost returns the configured cost for a call kind.
func (t *Tracker) Cost(kind CallKind) int {
	if c, ok := t.opts.Costs[kind]; ok {
		return c
	}
	return DefaultCost
}

// Reserve debits the cost of one call of the given kind if budget remains.
// The debit is optimistic: a caller whose call never executed must give the
// units back via Release.
func (t *Tracker) Reserve(kind CallKind) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover()

	cost := t.Cost(kind)
	if t.remaining >= cost {
		t.remaining -= cost
		t.used += cost
		return Decision{State: Granted}
	}

	wait := t.resetAt.Sub(t.now())
	if wait < 0 {
		wait = 0
	}

	if !t.opts.WaitForReset || wait > t.opts.MaxWait {
		t.log.WarnWithFields("quota budget exhausted", map[string]interface{}{
			"kind":      string(kind),
			"cost":      cost,
			"remaining": t.remaining,
			"reset_at":  t.resetAt,
		})
		return Decision{State: Exhausted}
	}

	return Decision{State: MustWait, Wait: wait}
}

// Release restores the debit for a call that was granted but never executed.
func (t *Tracker) Release(kind CallKind) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cost := t.Cost(kind)
	t.remaining += cost
	t.used -= cost
	if t.remaining > t.opts.DailyLimit {
		t.remaining = t.opts.DailyLimit
	}
	if t.used < 0 {
		t.used = 0
	}
}

// ReportExceeded records an out-of-band capacity-exceeded signal from the
// remote API. The external signal takes precedence over local bookkeeping:
// the budget drops to zero and, when the API reported a reset time, it
// replaces the local prediction.
func (t *Tracker) ReportExceeded(resetAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.remaining = 0
	if !resetAt.IsZero() {
		t.resetAt = resetAt
	}
	t.log.WarnWithFields("remote reported quota exceeded", map[string]interface{}{
		"reset_at": t.resetAt,
	})
}

// Remaining returns the currently-available budget units.
func (t *Tracker) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return t.remaining
}

// Used returns the units consumed in the current window.
func (t *Tracker) Used() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used
}

// ResetAt returns the absolute time of the next predicted window rollover.
func (t *Tracker) ResetAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resetAt
}

// rollover recredits the budget when the window has passed.
// Caller must hold the mutex.
func (t *Tracker) rollover() {
	now := t.now()
	if now.Before(t.resetAt) {
		return
	}
	t.remaining = t.opts.DailyLimit
	t.used = 0
	t.resetAt = now.Add(t.opts.Period)
	t.log.InfoWithFields("quota window rolled over", map[string]interface{}{
		"limit":    t.opts.DailyLimit,
		"reset_at": t.resetAt,
	})
}
