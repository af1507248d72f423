// Package checkpoint decides when accumulated backup progress must be
// committed to the repository, and performs those commits.
package checkpoint

import (
	"context"
	"fmt"

	"annextube/pkg/logger"
)

// Repository is the versioning backend the scheduler commits to.
type Repository interface {
	// Commit durably snapshots the current working tree with a message.
	Commit(ctx context.Context, message string) error
	// IsClean reports whether the working tree has no pending changes.
	IsClean(ctx context.Context) (bool, error)
}

// Scheduler tracks progress since the last commit and triggers a commit
// every N completed units. A cadence of zero disables periodic commits; a
// single commit then happens only at run end or on interruption.
type Scheduler struct {
	every       int
	sinceCommit int
	dirty       bool
	repo        Repository
	log         logger.Logger
}

// NewScheduler creates a scheduler with the given cadence.
func NewScheduler(every int, repo Repository, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scheduler{
		every: every,
		repo:  repo,
		log:   log,
	}
}

// RecordCompletion notes one completed unit since the last commit.
func (s *Scheduler) RecordCompletion() {
	s.sinceCommit++
	s.dirty = true
}

// ShouldCommit reports whether the cadence has been reached.
func (s *Scheduler) ShouldCommit() bool {
	return s.every > 0 && s.sinceCommit >= s.every
}

// Dirty reports whether progress has accumulated since the last commit.
func (s *Scheduler) Dirty() bool {
	return s.dirty
}

// SinceCommit returns the number of completions since the last commit.
func (s *Scheduler) SinceCommit() int {
	return s.sinceCommit
}

// Commit invokes the repository commit with the given message. On success
// the counter and dirty flag reset; on failure both are left untouched so
// the next opportunity retries the same accumulated progress.
func (s *Scheduler) Commit(ctx context.Context, message string) error {
	if err := s.repo.Commit(ctx, message); err != nil {
		s.log.WarnWithFields("checkpoint commit failed, will retry at next opportunity", map[string]interface{}{
			"error":        err.Error(),
			"since_commit": s.sinceCommit,
		})
		return fmt.Errorf("checkpoint commit failed: %w", err)
	}

	s.log.InfoWithFields("checkpoint committed", map[string]interface{}{
		"message": message,
		"units":   s.sinceCommit,
	})
	s.sinceCommit = 0
	s.dirty = false
	return nil
}

// FinalCommit commits remaining progress at run end. When no completions
// accumulated since the last commit, the working tree is still inspected so
// stray changes (a rewritten ledger, partially fetched components) do not
// stay uncommitted.
func (s *Scheduler) FinalCommit(ctx context.Context, message string) error {
	if !s.dirty {
		clean, err := s.repo.IsClean(ctx)
		if err != nil {
			return fmt.Errorf("checking working tree: %w", err)
		}
		if clean {
			return nil
		}
	}
	return s.Commit(ctx, message)
}

// ProgressMessage builds the commit message for a periodic checkpoint.
// total < 0 means the total is not known.
func ProgressMessage(done, total int) string {
	if total >= 0 {
		return fmt.Sprintf("annextube: checkpoint %d/%d items archived", done, total)
	}
	return fmt.Sprintf("annextube: checkpoint %d items archived", done)
}

// InterruptedMessage builds the distinguished commit message used when a run
// is interrupted before finishing.
func InterruptedMessage(done int) string {
	return fmt.Sprintf("annextube: interrupted, %d items archived", done)
}

// FinalMessage builds the commit message for the run-end commit.
func FinalMessage(done, failed int) string {
	if failed > 0 {
		return fmt.Sprintf("annextube: backup finished, %d items archived, %d failed", done, failed)
	}
	return fmt.Sprintf("annextube: backup finished, %d items archived", done)
}
