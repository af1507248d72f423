package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annextube/pkg/config"
)

func TestNewWithValidLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "Info"} {
		log, err := New(&config.LoggingConfig{Level: level})
		require.NoError(t, err, "level %s", level)
		assert.NotNil(t, log)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNewWithFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "annextube.log")
	log, err := New(&config.LoggingConfig{Level: "info", File: path})
	require.NoError(t, err)

	log.Info("file output works")
	assert.FileExists(t, path)
}

func TestDerivedLoggersCarryFields(t *testing.T) {
	log := NewTestLogger()

	log.WithField("channel", "c1").Info("listing started")
	log.WithFields(map[string]interface{}{"video_id": "v1", "rank": 3}).Warn("unit failed")
	log.WithError(assert.AnError).Error("commit failed")

	entries := log.Entries()
	require.Len(t, entries, 3)

	assert.Equal(t, "listing started", entries[0].Message)
	assert.Equal(t, "c1", entries[0].Fields["channel"])

	assert.Equal(t, "warn", entries[1].Level)
	assert.Equal(t, "v1", entries[1].Fields["video_id"])

	assert.Contains(t, entries[2].Fields, "error")
	assert.True(t, log.HasMessage("unit failed"))
	assert.False(t, log.HasMessage("never logged"))
}

func TestGlobalLoggerInitialization(t *testing.T) {
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "warn"}))
	assert.NotNil(t, GetLogger())
}
