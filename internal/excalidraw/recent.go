// Package excalidraw keeps a short recent-files list for .excalidraw drawings
// and opens them in the web editor.
package excalidraw

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// RecentFileName is the name of the JSON list inside the data directory.
const RecentFileName = "recent_excalidraw.json"

// DefaultRecentLimit is how many entries are kept when no limit is configured.
const DefaultRecentLimit = 10

// RecentFile is one entry of the recent-files list.
type RecentFile struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	LastOpened time.Time `json:"lastOpened"`
}

// RecentStore persists the recent-files list as a JSON array, newest first.
type RecentStore struct {
	mu    sync.Mutex
	path  string
	limit int
	now   func() time.Time
}

// NewRecentStore returns a store backed by dataDir/recent_excalidraw.json.
func NewRecentStore(dataDir string, limit int) *RecentStore {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return &RecentStore{
		path:  filepath.Join(dataDir, RecentFileName),
		limit: limit,
		now:   time.Now,
	}
}

// Path returns the location of the backing file.
func (s *RecentStore) Path() string { return s.path }

// List returns the stored entries. A missing or unreadable list is empty.
func (s *RecentStore) List() ([]RecentFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Touch moves path to the front of the list, adding it if needed, and trims
// the list to the configured limit.
func (s *RecentStore) Touch(path, name string) ([]RecentFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.load()
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = filepath.Base(path)
	}

	updated := make([]RecentFile, 0, len(files)+1)
	updated = append(updated, RecentFile{Path: path, Name: name, LastOpened: s.now().UTC()})
	for _, f := range files {
		if f.Path != path {
			updated = append(updated, f)
		}
	}
	if len(updated) > s.limit {
		updated = updated[:s.limit]
	}

	if err := s.save(updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// MarkOpened refreshes LastOpened for path without reordering the list.
// It reports whether path was present.
func (s *RecentStore) MarkOpened(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.load()
	if err != nil {
		return false, err
	}
	found := false
	for i := range files {
		if files[i].Path == path {
			files[i].LastOpened = s.now().UTC()
			found = true
		}
	}
	if !found {
		return false, nil
	}
	return true, s.save(files)
}

func (s *RecentStore) load() ([]RecentFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []RecentFile{}, nil
		}
		return nil, fmt.Errorf("read recent files: %w", err)
	}
	var files []RecentFile
	if err := json.Unmarshal(data, &files); err != nil {
		log.WithField("path", s.path).Warnf("recent files list is corrupt, starting over: %v", err)
		return []RecentFile{}, nil
	}
	if files == nil {
		files = []RecentFile{}
	}
	return files, nil
}

// save writes through a temp file so readers never observe a partial list.
func (s *RecentStore) save(files []RecentFile) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.MarshalIndent(files, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".recent-*.json")
	if err != nil {
		return fmt.Errorf("write recent files: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write recent files: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write recent files: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write recent files: %w", err)
	}
	return nil
}
