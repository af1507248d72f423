package backup

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"annextube/pkg/checkpoint"
	"annextube/pkg/config"
	errs "annextube/pkg/errors"
	"annextube/pkg/ledger"
	"annextube/pkg/logger"
	"annextube/pkg/quota"
	"annextube/pkg/ratelimit"
	"annextube/pkg/retry"
	"annextube/pkg/source"
	"annextube/pkg/storage"
)

// Canceller reports whether a cooperative cancellation has been requested.
// The engine checks it at unit boundaries and while waiting on the budget
// window; it never aborts mid-component.
type Canceller interface {
	Cancelled() bool
}

var (
	errInterrupted     = stderrors.New("run interrupted")
	errBudgetExhausted = stderrors.New("capacity budget exhausted")
)

// Deps are the collaborators one engine run drives.
type Deps struct {
	Lister    source.Lister
	Acquirer  source.Acquirer
	Store     *storage.Manager
	Ledger    *ledger.Ledger
	Tracker   *quota.Tracker
	Scheduler *checkpoint.Scheduler
	Canceller Canceller
	Limiter   ratelimit.Limiter
	Retry     *retry.Config
	Logger    logger.Logger
}

// Engine is the run control loop: it discovers candidate videos, applies
// filters, drives each unit through acquisition and storage with the quota
// tracker gating every billed call, records completions in the ledger, and
// lets the checkpoint scheduler commit accumulated progress.
type Engine struct {
	cfg        *config.Config
	lister     source.Lister
	acquirer   source.Acquirer
	store      *storage.Manager
	ledger     *ledger.Ledger
	tracker    *quota.Tracker
	scheduler  *checkpoint.Scheduler
	canceller  Canceller
	limiter    ratelimit.Limiter
	retryCfg   *retry.Config
	log        logger.Logger
	components []source.Component
}

// NewEngine wires an engine from its configuration and collaborators.
func NewEngine(cfg *config.Config, deps Deps) *Engine {
	log := deps.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	retryCfg := deps.Retry
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}

	components := make([]source.Component, 0, len(cfg.Output.Components))
	for _, name := range cfg.Output.Components {
		components = append(components, source.Component(name))
	}

	return &Engine{
		cfg:        cfg,
		lister:     deps.Lister,
		acquirer:   deps.Acquirer,
		store:      deps.Store,
		ledger:     deps.Ledger,
		tracker:    deps.Tracker,
		scheduler:  deps.Scheduler,
		canceller:  deps.Canceller,
		limiter:    deps.Limiter,
		retryCfg:   retryCfg,
		log:        log,
		components: components,
	}
}

// Run executes one backup pass. The returned summary is valid even when an
// error is returned; the error is non-nil only for fatal conditions (a
// ledger write failure, an unrecoverable listing failure, a failed final
// commit). Quota exhaustion and interruption are reported through
// Summary.Outcome, not through the error.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	startUsed := e.tracker.Used()
	sum := &Summary{Outcome: OutcomeCompleted}

	flt, err := newFilter(&e.cfg.Filters, e.ledger.IsEmpty())
	if err != nil {
		return sum, err
	}

	units, limitHit, discErr := e.discover(ctx, flt, sum)
	sum.Units = units
	runErr := e.classify(discErr, sum)

	if runErr == nil && sum.Outcome == OutcomeCompleted {
		runErr = e.process(ctx, units, sum)
	}

	if limitHit && sum.Outcome == OutcomeCompleted {
		sum.Outcome = OutcomeLimitReached
	}

	commitErr := e.finalize(ctx, sum)
	if runErr == nil {
		runErr = commitErr
	}

	sum.QuotaUsed = e.tracker.Used() - startUsed
	if sum.QuotaUsed < 0 {
		sum.QuotaUsed = 0
	}
	sum.Elapsed = time.Since(start)

	e.log.InfoWithFields("run finished", map[string]interface{}{
		"outcome":    string(sum.Outcome),
		"done":       sum.Done,
		"failed":     sum.Failed,
		"skipped":    sum.Skipped,
		"quota_used": sum.QuotaUsed,
		"elapsed":    sum.Elapsed.Round(time.Millisecond).String(),
	})
	return sum, runErr
}

// discover pages through the remote listing, filtering as it goes. Each
// page fetch is gated by the quota tracker. The boolean reports whether the
// max-items cap stopped discovery early.
func (e *Engine) discover(ctx context.Context, flt *filter, sum *Summary) ([]Unit, bool, error) {
	var units []Unit
	token := ""
	rank := 0
	maxItems := e.cfg.Filters.MaxItems

	for {
		if e.interrupted(ctx) {
			return units, false, errInterrupted
		}
		if err := e.awaitQuota(ctx, quota.CallList); err != nil {
			return units, false, err
		}

		items, next, err := e.listPage(ctx, token)
		if err != nil {
			if !errs.IsQuotaExceeded(err) {
				e.tracker.Release(quota.CallList)
			}
			return units, false, err
		}

		for _, v := range items {
			v.Rank = rank
			rank++
			if !flt.Accept(v) {
				sum.FilteredOut++
				continue
			}
			units = append(units, Unit{Video: v, Status: StatusPending})
			if maxItems > 0 && len(units) >= maxItems {
				e.log.InfoWithFields("max-items cap reached, stopping discovery", map[string]interface{}{
					"max_items": maxItems,
				})
				return units, true, nil
			}
		}

		if next == "" {
			e.log.InfoWithFields("discovery finished", map[string]interface{}{
				"candidates":   len(units),
				"filtered_out": sum.FilteredOut,
			})
			return units, false, nil
		}
		token = next
	}
}

func (e *Engine) listPage(ctx context.Context, token string) ([]source.Video, string, error) {
	type page struct {
		items []source.Video
		next  string
	}
	cfg := *e.retryCfg
	cfg.Context = ctx
	p, err := retry.DoWithResult(func() (page, error) {
		items, next, err := e.lister.ListPage(ctx, token)
		return page{items: items, next: next}, err
	}, &cfg)
	return p.items, p.next, err
}

// process drives each candidate unit to completion, in discovery order,
// one at a time. Unit statuses are updated in place; units the run never
// reached stay pending.
func (e *Engine) process(ctx context.Context, units []Unit, sum *Summary) error {
	total := len(units)

	for i := range units {
		u := &units[i]
		v := u.Video

		if e.interrupted(ctx) {
			sum.Outcome = OutcomeInterrupted
			return nil
		}
		if e.ledger.HasCompleted(v.ID) {
			u.Status = StatusDone
			sum.Skipped++
			continue
		}

		u.Status = StatusInProgress
		saved, err := e.processUnit(ctx, v)
		if err != nil {
			if runErr := e.classify(err, sum); runErr != nil {
				return runErr
			}
			if sum.Outcome != OutcomeCompleted {
				return nil
			}
			u.Status = StatusFailed
			u.Err = err
			sum.Failed++
			e.log.WarnWithFields("unit failed, continuing", map[string]interface{}{
				"video_id": v.ID,
				"error":    err.Error(),
			})
			if lerr := e.ledger.MarkFailed(v.ID, err.Error()); lerr != nil {
				return errs.New(errs.ErrorTypeLedger, "recording failure: "+lerr.Error())
			}
			continue
		}

		// The unit only counts once its completion is durable. A write
		// failure here is fatal: continuing would risk redoing or losing
		// the unit on the next run.
		if err := e.ledger.MarkCompleted(v.ID, saved); err != nil {
			return errs.New(errs.ErrorTypeLedger, "recording completion: "+err.Error())
		}
		u.Status = StatusDone
		sum.Done++
		e.scheduler.RecordCompletion()

		if e.scheduler.ShouldCommit() {
			msg := checkpoint.ProgressMessage(sum.Done, total)
			if err := e.scheduler.Commit(ctx, msg); err != nil {
				// Progress stays accumulated; the next cadence point or the
				// final commit retries it.
				continue
			}
		}
	}
	return nil
}

// processUnit fetches and stores every requested component of one video.
// Components already on disk (from a run that died between storage and
// ledger update) are kept as-is. Nothing is recorded in the ledger here:
// the caller does that only once every component landed.
func (e *Engine) processUnit(ctx context.Context, v source.Video) ([]string, error) {
	saved := make([]string, 0, len(e.components))

	for _, comp := range e.components {
		if e.store.HasComponent(v.ID, comp) {
			saved = append(saved, string(comp))
			continue
		}

		kind, billed := callKindFor(comp)
		if billed {
			if err := e.awaitQuota(ctx, kind); err != nil {
				return nil, err
			}
		} else if err := e.limiter.Wait(ctx); err != nil {
			return nil, errInterrupted
		}

		data, err := e.fetch(ctx, v.ID, comp)
		if err != nil {
			if billed && !errs.IsQuotaExceeded(err) {
				e.tracker.Release(kind)
			}
			return nil, err
		}

		if err := e.store.SaveComponent(v.ID, comp, data); err != nil {
			return nil, fmt.Errorf("storing %s for %s: %w", comp, v.ID, err)
		}
		saved = append(saved, string(comp))
	}
	return saved, nil
}

func (e *Engine) fetch(ctx context.Context, videoID string, comp source.Component) ([]byte, error) {
	cfg := *e.retryCfg
	cfg.Context = ctx
	return retry.DoWithResult(func() ([]byte, error) {
		return e.acquirer.Acquire(ctx, videoID, comp)
	}, &cfg)
}

// awaitQuota reserves budget for one call of the given kind, blocking
// through MustWait decisions until the window rolls over. The wait is
// sliced into poll-interval steps so cancellation is noticed promptly.
func (e *Engine) awaitQuota(ctx context.Context, kind quota.CallKind) error {
	for {
		d := e.tracker.Reserve(kind)
		switch d.State {
		case quota.Granted:
			return nil
		case quota.Exhausted:
			return errBudgetExhausted
		}

		e.log.InfoWithFields("budget insufficient, waiting for window reset", map[string]interface{}{
			"kind": string(kind),
			"wait": d.Wait.Round(time.Second).String(),
		})
		if err := e.waitForReset(ctx, d.Wait); err != nil {
			return err
		}
	}
}

func (e *Engine) waitForReset(ctx context.Context, total time.Duration) error {
	poll := e.cfg.Quota.PollInterval
	if poll <= 0 {
		poll = 15 * time.Second
	}
	remaining := total
	for remaining > 0 {
		if e.canceller != nil && e.canceller.Cancelled() {
			return errInterrupted
		}
		step := poll
		if step > remaining {
			step = remaining
		}
		if err := retry.Wait(ctx, step); err != nil {
			return errInterrupted
		}
		remaining -= step
	}
	if e.canceller != nil && e.canceller.Cancelled() {
		return errInterrupted
	}
	return nil
}

// finalize commits whatever progress is still pending. Interrupted runs
// only commit when configured to; every other outcome commits the
// remainder so no recorded unit is left outside a commit.
func (e *Engine) finalize(ctx context.Context, sum *Summary) error {
	if sum.Outcome == OutcomeInterrupted {
		if !e.cfg.Checkpoint.AutoCommitOnInterrupt {
			e.log.Warn("interrupted with auto-commit disabled, progress left uncommitted")
			return nil
		}
		if err := e.scheduler.FinalCommit(ctx, checkpoint.InterruptedMessage(sum.Done)); err != nil {
			return errs.New(errs.ErrorTypeCommit, "interrupt commit: "+err.Error())
		}
		return nil
	}

	if err := e.scheduler.FinalCommit(ctx, checkpoint.FinalMessage(sum.Done, sum.Failed)); err != nil {
		return errs.New(errs.ErrorTypeCommit, "final commit: "+err.Error())
	}
	return nil
}

// classify maps sentinel and quota conditions onto the summary outcome.
// It returns an error only for genuinely fatal conditions; nil means the
// condition was absorbed into the outcome (or err was nil).
func (e *Engine) classify(err error, sum *Summary) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, errInterrupted):
		sum.Outcome = OutcomeInterrupted
		return nil
	case stderrors.Is(err, errBudgetExhausted):
		sum.Outcome = OutcomeQuotaExhausted
		return nil
	case errs.IsQuotaExceeded(err):
		// The remote's own signal outranks local bookkeeping.
		var resetAt time.Time
		var qerr *errs.QuotaError
		if stderrors.As(err, &qerr) {
			resetAt = qerr.ResetAt
		}
		e.tracker.ReportExceeded(resetAt)
		sum.Outcome = OutcomeQuotaExhausted
		return nil
	default:
		return err
	}
}

func (e *Engine) interrupted(ctx context.Context) bool {
	if e.canceller != nil && e.canceller.Cancelled() {
		return true
	}
	return ctx.Err() != nil
}

// callKindFor maps a component to its billed call kind. Media and
// thumbnail bytes are served from CDN endpoints that do not count against
// the API budget; they are paced by the rate limiter instead.
func callKindFor(c source.Component) (quota.CallKind, bool) {
	switch c {
	case source.ComponentInfo:
		return quota.CallMetadata, true
	case source.ComponentSubtitles:
		return quota.CallCaptions, true
	case source.ComponentComments:
		return quota.CallComments, true
	default:
		return "", false
	}
}
