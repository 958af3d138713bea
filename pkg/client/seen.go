package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// SeenStore remembers which dilemmas were shown, per language, in a JSON file
// shaped like {"en": ["id1"], "it": []}.
type SeenStore struct {
	path string

	mu   sync.Mutex
	data map[string][]string
}

// OpenSeenStore loads path. A missing file is an empty store.
func OpenSeenStore(path string) (*SeenStore, error) {
	s := &SeenStore{path: path, data: make(map[string][]string)}
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read seen store %s: %w", path, err)
	}
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("failed to decode seen store %s: %w", path, err)
	}
	if s.data == nil {
		s.data = make(map[string][]string)
	}
	return s, nil
}

// Seen returns a copy of the ids seen in language.
func (s *SeenStore) Seen(language string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.data[language])
}

// Has reports whether id was seen in language.
func (s *SeenStore) Has(language, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.data[language], id)
}

// Count returns how many ids were seen in language.
func (s *SeenStore) Count(language string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data[language])
}

// Mark records id as seen. Duplicates are ignored.
func (s *SeenStore) Mark(language, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.data[language], id) {
		return nil
	}
	s.data[language] = append(s.data[language], id)
	return s.saveLocked()
}

// Clear forgets the ids of one language.
func (s *SeenStore) Clear(language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, language)
	return s.saveLocked()
}

// ClearAll forgets every language.
func (s *SeenStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string][]string)
	return s.saveLocked()
}

func (s *SeenStore) saveLocked() error {
	if s.path == "" {
		return nil
	}
	raw, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("failed to encode seen store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create seen store dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write seen store: %w", err)
	}
	return os.Rename(tmp, s.path)
}
