package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Well-known counter and flag keys. The coordinator is the only writer of
// the counter keys; one-shot flags transition false→true once in normal
// operation.
const (
	KeyFirstUsedDate  = "firstUsedDate"
	KeyLastUsedDate   = "lastUsedDate"
	KeyNumDaysUsed    = "numDaysUsed"
	KeyNumJokesViewed = "numJokesViewed"
	KeyNumSavedJokes  = "numSavedJokes"
	KeyNumSharedJokes = "numSharedJokes"

	KeyReviewRequested  = "reviewRequested"
	KeyTourCompleted    = "tourCompleted"
	KeyFeedbackViewed   = "feedbackViewed"
	KeyDigestSubscribed = "digestSubscribed"
)

// Store is a flat key/value file holding scalar usage counters and one-shot
// flags. The file is created lazily on first write; reads against a missing
// file behave as an empty store. The internal mutex protects file and map
// integrity only; read-modify-write sequencing is the caller's concern.
type Store struct {
	path string

	mu     sync.Mutex
	values map[string]json.RawMessage
	loaded bool
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("prefs: empty path")
	}
	return &Store{path: path}, nil
}

func (s *Store) GetInt(key string) (int, bool) {
	var v int
	ok := s.get(key, &v)
	return v, ok
}

func (s *Store) GetString(key string) (string, bool) {
	var v string
	ok := s.get(key, &v)
	return v, ok
}

func (s *Store) GetBool(key string) (bool, bool) {
	var v bool
	ok := s.get(key, &v)
	return v, ok
}

func (s *Store) SetInt(key string, value int) error {
	return s.set(key, value)
}

func (s *Store) SetString(key string, value string) error {
	return s.set(key, value)
}

func (s *Store) SetBool(key string, value bool) error {
	return s.set(key, value)
}

// Remove deletes key. Removing an absent key is a no-op.
func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}

	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.flush()
}

func (s *Store) get(key string, out any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return false
	}

	raw, ok := s.values[key]
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	return true
}

func (s *Store) set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("prefs: marshal %s: %w", key, err)
	}
	s.values[key] = raw
	return s.flush()
}

func (s *Store) load() error {
	if s.loaded {
		return nil
	}

	s.values = make(map[string]json.RawMessage)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("prefs: read %s: %w", s.path, err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.values); err != nil {
			return fmt.Errorf("prefs: parse %s: %w", s.path, err)
		}
	}

	s.loaded = true
	return nil
}

// flush writes the whole map atomically: temp file in the same directory,
// then rename over the target.
func (s *Store) flush() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("prefs: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prefs: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*")
	if err != nil {
		return fmt.Errorf("prefs: create temp: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("prefs: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("prefs: close temp: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("prefs: rename: %w", err)
	}
	return nil
}
