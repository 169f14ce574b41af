package kvstore

import (
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// FileStore maps each key to a file under a root directory. Writes go through
// a temp file and rename so a crash mid-write never leaves a torn value.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

var _ Store = &FileStore{}

// NewFileStore creates the root directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store: dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "file store: create dir")
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	// Escape the key so separators and dots cannot walk out of the root.
	return filepath.Join(s.dir, url.PathEscape(key))
}

func (s *FileStore) Get(key string) (string, bool, error) {
	if s == nil {
		return "", false, errors.New("file store: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "file store: read")
	}
	return string(b), true, nil
}

func (s *FileStore) Set(key, value string) error {
	if s == nil {
		return errors.New("file store: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dst := s.path(key)
	tmp, err := os.CreateTemp(s.dir, ".kv-*")
	if err != nil {
		return errors.Wrap(err, "file store: create temp")
	}
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "file store: write temp")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "file store: close temp")
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "file store: rename")
	}
	return nil
}

func (s *FileStore) Remove(key string) error {
	if s == nil {
		return errors.New("file store: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "file store: remove")
	}
	return nil
}
