// Package storage writes archived components into the repository working
// tree and provides the commit backend for checkpoints.
package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"annextube/pkg/source"
)

// Manager handles working-tree file operations. Each video gets its own
// directory named after its id.
type Manager struct {
	rootDir string
	written map[string]bool
	mu      sync.RWMutex
}

// NewManager creates a storage manager rooted at rootDir.
func NewManager(rootDir string) (*Manager, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		rootDir: rootDir,
		written: make(map[string]bool),
	}, nil
}

// ComponentPath returns the path a component is stored at.
func (m *Manager) ComponentPath(videoID string, component source.Component) string {
	return filepath.Join(m.rootDir, videoID, component.Filename(videoID))
}

// SaveComponent writes one component's payload. The write is atomic: data
// goes to a temp file first and is renamed into place, so a crash never
// leaves a half-written component at the final path.
func (m *Manager) SaveComponent(videoID string, component source.Component, data []byte) error {
	dir := filepath.Join(m.rootDir, videoID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create video directory: %w", err)
	}

	filename := m.ComponentPath(videoID, component)
	tempFile := filename + ".tmp"

	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, bytes.NewReader(data))
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write component data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.written[filename] = true
	m.mu.Unlock()

	return nil
}

// HasComponent reports whether a component file already exists on disk.
func (m *Manager) HasComponent(videoID string, component source.Component) bool {
	filename := m.ComponentPath(videoID, component)

	m.mu.RLock()
	known := m.written[filename]
	m.mu.RUnlock()
	if known {
		return true
	}

	if _, err := os.Stat(filename); err == nil {
		m.mu.Lock()
		m.written[filename] = true
		m.mu.Unlock()
		return true
	}

	return false
}

// RootDir returns the working-tree root.
func (m *Manager) RootDir() string {
	return m.rootDir
}

// WrittenCount returns the number of files written this run.
func (m *Manager) WrittenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.written)
}
