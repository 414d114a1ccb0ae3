package db

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// JSONStore keeps thread ids as a flat JSON array in a single file.
// A missing or unreadable file is treated as an empty list.
// Writes go through one mutex and a temp-file rename, so concurrent
// requests in this process cannot lose each other's updates.
type JSONStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

var _ ThreadStore = (*JSONStore)(nil)

func NewJSONStore(fs afero.Fs, path string) (*JSONStore, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if path == "" {
		return nil, fmt.Errorf("thread file path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return &JSONStore{fs: fs, path: path}, nil
}

func (s *JSONStore) SaveThread(_ context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("thread id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.read()
	if slices.Contains(ids, id) {
		return nil
	}
	ids = append(ids, id)

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode thread ids: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

func (s *JSONStore) ListThreads(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(), nil
}

func (s *JSONStore) read() []string {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return []string{}
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil || ids == nil {
		return []string{}
	}
	return ids
}

func (s *JSONStore) Close() error { return nil }

// Open returns the store named by kind ("json" or "sqlite") at path.
func Open(kind, path string) (ThreadStore, error) {
	switch kind {
	case "", "json":
		return NewJSONStore(afero.NewOsFs(), path)
	case "sqlite":
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create %s: %w", dir, err)
			}
		}
		return NewSQLite(path)
	default:
		return nil, fmt.Errorf("unknown thread store %q", kind)
	}
}
