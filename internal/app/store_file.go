package app

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps the registry as one JSON file. Saves write a temp file
// and rename it into place so readers never see a torn snapshot.
type FileStore struct {
	Root string

	mu sync.Mutex
}

func NewFileStore(root string) *FileStore {
	if strings.TrimSpace(root) == "" {
		root = DefaultStorageRoot()
	}
	return &FileStore{Root: filepath.Clean(root)}
}

func (s *FileStore) path() string {
	return filepath.Join(s.Root, "sessions.json")
}

func (s *FileStore) LoadSessions() (map[string]ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]ChatSession{}, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return map[string]ChatSession{}, nil
	}
	sessions := map[string]ChatSession{}
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *FileStore) SaveSessions(sessions map[string]ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return err
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path())
}
