// Package ledger keeps the durable record of which work units a backup has
// completed, so a restarted run performs only the remaining work.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"annextube/pkg/logger"
)

// Entry records one settled work unit.
type Entry struct {
	ID          string    `json:"id"`
	Components  []string  `json:"components,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// FailedEntry records a unit that exhausted its retries. Failed units are
// re-attempted on the next run, so this is reporting state, not a skip list.
type FailedEntry struct {
	ID       string    `json:"id"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// fileState is the on-disk shape of the ledger.
type fileState struct {
	Channel   string                 `json:"channel"`
	Completed map[string]Entry       `json:"completed"`
	Failed    map[string]FailedEntry `json:"failed,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	Version   int                    `json:"version"`
}

// Ledger is the durable completion record. Every MarkCompleted survives
// process termination before it returns.
type Ledger struct {
	path   string
	state  fileState
	logger logger.Logger
}

// Open loads the ledger at path, creating an empty one if none exists.
func Open(path, channel string, log logger.Logger) (*Ledger, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	l := &Ledger{
		path:   path,
		logger: log,
		state: fileState{
			Channel:   channel,
			Completed: make(map[string]Entry),
			Failed:    make(map[string]FailedEntry),
			CreatedAt: time.Now(),
			Version:   1,
		},
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&l.state); err != nil {
		return nil, fmt.Errorf("failed to decode ledger: %w", err)
	}
	if l.state.Completed == nil {
		l.state.Completed = make(map[string]Entry)
	}
	if l.state.Failed == nil {
		l.state.Failed = make(map[string]FailedEntry)
	}

	log.InfoWithFields("ledger loaded", map[string]interface{}{
		"path":      path,
		"completed": len(l.state.Completed),
		"failed":    len(l.state.Failed),
	})

	return l, nil
}

// HasCompleted reports whether the unit is already settled.
func (l *Ledger) HasCompleted(id string) bool {
	_, ok := l.state.Completed[id]
	return ok
}

// MarkCompleted durably records a completed unit. The write reaches disk
// before this returns; a failure here must stop the run.
func (l *Ledger) MarkCompleted(id string, components []string) error {
	l.state.Completed[id] = Entry{
		ID:          id,
		Components:  components,
		CompletedAt: time.Now(),
	}
	delete(l.state.Failed, id)

	if err := l.save(); err != nil {
		// Roll back the in-memory entry so state matches disk.
		delete(l.state.Completed, id)
		return fmt.Errorf("failed to record completion of %s: %w", id, err)
	}

	l.logger.DebugWithFields("unit recorded as completed", map[string]interface{}{
		"id":    id,
		"total": len(l.state.Completed),
	})
	return nil
}

// MarkFailed durably records a unit that exhausted its retries. Like
// MarkCompleted, a failed save means the ledger can no longer be trusted
// and the caller must stop the run.
func (l *Ledger) MarkFailed(id, reason string) error {
	l.state.Failed[id] = FailedEntry{
		ID:       id,
		Reason:   reason,
		FailedAt: time.Now(),
	}
	if err := l.save(); err != nil {
		delete(l.state.Failed, id)
		return fmt.Errorf("failed to record failure of %s: %w", id, err)
	}
	return nil
}

// KnownIDs returns the ids of all completed units.
func (l *Ledger) KnownIDs() []string {
	ids := make([]string, 0, len(l.state.Completed))
	for id := range l.state.Completed {
		ids = append(ids, id)
	}
	return ids
}

// IsEmpty reports whether no unit has ever completed. It decides the
// fresh-archive filter behaviour at run start.
func (l *Ledger) IsEmpty() bool {
	return len(l.state.Completed) == 0
}

// Len returns the number of completed units.
func (l *Ledger) Len() int {
	return len(l.state.Completed)
}

// FailedCount returns the number of units recorded as failed.
func (l *Ledger) FailedCount() int {
	return len(l.state.Failed)
}

// Path returns the ledger's file path.
func (l *Ledger) Path() string {
	return l.path
}

// save writes the ledger to disk atomically: temp file, fsync, rename.
func (l *Ledger) save() error {
	l.state.UpdatedAt = time.Now()

	tempPath := l.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary ledger file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&l.state); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync ledger file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close ledger file: %w", err)
	}

	if err := os.Rename(tempPath, l.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}

	return nil
}
