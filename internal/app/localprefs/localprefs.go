// Package localprefs persists small per-user UI preferences to a local
// YAML file, keyed by workspace. Currently this covers the last selected
// category in each workspace so a returning session can restore it.
package localprefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type fileData struct {
	// LastCategory maps workspace id (hex) to category id (hex).
	// An empty value means "All" (no category filter).
	LastCategory map[string]string `yaml:"last_category"`
}

// Store reads and writes the preferences file. All methods are safe for
// concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
	data fileData
	log  *zap.Logger
}

// Open loads the preferences file at path, creating parent directories as
// needed. A missing or unreadable file starts an empty store rather than
// failing; preferences are advisory.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("localprefs: path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("localprefs: create dir: %w", err)
	}

	s := &Store{path: path, log: logger}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// first run
	case err != nil:
		logger.Warn("localprefs: read failed, starting empty", zap.String("path", path), zap.Error(err))
	default:
		if err := yaml.Unmarshal(raw, &s.data); err != nil {
			logger.Warn("localprefs: parse failed, starting empty", zap.String("path", path), zap.Error(err))
			s.data = fileData{}
		}
	}
	if s.data.LastCategory == nil {
		s.data.LastCategory = make(map[string]string)
	}
	return s, nil
}

// LastCategory returns the saved category id for the workspace, or ""
// when none is saved (meaning the "All" view).
func (s *Store) LastCategory(workspaceID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.LastCategory[workspaceID]
}

// SetLastCategory records categoryID as the last selection in the
// workspace and persists immediately. An empty categoryID clears the
// entry back to the "All" view.
func (s *Store) SetLastCategory(workspaceID, categoryID string) error {
	if workspaceID == "" {
		return errors.New("localprefs: workspace id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if categoryID == "" {
		delete(s.data.LastCategory, workspaceID)
	} else {
		s.data.LastCategory[workspaceID] = categoryID
	}
	return s.flushLocked()
}

// ForgetWorkspace drops all saved preferences for the workspace. Called
// when the user leaves or deletes a workspace.
func (s *Store) ForgetWorkspace(workspaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.LastCategory[workspaceID]; !ok {
		return nil
	}
	delete(s.data.LastCategory, workspaceID)
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	raw, err := yaml.Marshal(&s.data)
	if err != nil {
		return fmt.Errorf("localprefs: marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("localprefs: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("localprefs: rename: %w", err)
	}
	return nil
}
