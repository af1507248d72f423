package checkpoint

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annextube/pkg/logger"
)

// fakeRepo records commits and can be told to fail.
type fakeRepo struct {
	commits []string
	failErr error
	clean   bool
}

func (f *fakeRepo) Commit(ctx context.Context, message string) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.commits = append(f.commits, message)
	f.clean = true
	return nil
}

func (f *fakeRepo) IsClean(ctx context.Context) (bool, error) {
	return f.clean, nil
}

func TestShouldCommitAtCadence(t *testing.T) {
	repo := &fakeRepo{}
	s := NewScheduler(3, repo, logger.NewTestLogger())

	for i := 0; i < 2; i++ {
		s.RecordCompletion()
		assert.False(t, s.ShouldCommit(), "no commit before cadence reached")
	}

	s.RecordCompletion()
	assert.True(t, s.ShouldCommit())
}

func TestCommitResetsCounter(t *testing.T) {
	repo := &fakeRepo{}
	s := NewScheduler(2, repo, logger.NewTestLogger())

	s.RecordCompletion()
	s.RecordCompletion()
	require.True(t, s.ShouldCommit())

	require.NoError(t, s.Commit(context.Background(), ProgressMessage(2, 10)))

	assert.False(t, s.ShouldCommit())
	assert.False(t, s.Dirty())
	assert.Equal(t, 0, s.SinceCommit())
	require.Len(t, repo.commits, 1)
	assert.Equal(t, "annextube: checkpoint 2/10 items archived", repo.commits[0])
}

func TestZeroCadenceNeverTriggersPeriodicCommit(t *testing.T) {
	s := NewScheduler(0, &fakeRepo{}, logger.NewTestLogger())

	for i := 0; i < 100; i++ {
		s.RecordCompletion()
		assert.False(t, s.ShouldCommit())
	}
	assert.True(t, s.Dirty(), "progress still accumulates for the final commit")
}

func TestFailedCommitKeepsProgress(t *testing.T) {
	repo := &fakeRepo{failErr: errors.New("index.lock held")}
	log := logger.NewTestLogger()
	s := NewScheduler(2, repo, log)

	s.RecordCompletion()
	s.RecordCompletion()

	err := s.Commit(context.Background(), ProgressMessage(2, -1))
	require.Error(t, err)

	assert.True(t, s.Dirty(), "failed commit must leave the dirty flag set")
	assert.Equal(t, 2, s.SinceCommit(), "failed commit must not reset the counter")
	assert.True(t, s.ShouldCommit(), "the next opportunity retries the same progress")

	// The retry succeeds once the backend recovers.
	repo.failErr = nil
	require.NoError(t, s.Commit(context.Background(), ProgressMessage(2, -1)))
	assert.False(t, s.Dirty())
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "annextube: checkpoint 50/173 items archived", ProgressMessage(50, 173))
	assert.Equal(t, "annextube: checkpoint 7 items archived", ProgressMessage(7, -1))
	assert.Equal(t, "annextube: interrupted, 9 items archived", InterruptedMessage(9))
	assert.Equal(t, "annextube: backup finished, 173 items archived", FinalMessage(173, 0))
	assert.Equal(t, "annextube: backup finished, 10 items archived, 2 failed", FinalMessage(10, 2))
}
