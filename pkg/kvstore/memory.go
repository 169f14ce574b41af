package kvstore

import (
	"sync"

	"github.com/pkg/errors"
)

// InMemoryStore keeps values for the lifetime of the process. It is the
// default store and the test double.
type InMemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

var _ Store = &InMemoryStore{}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{values: map[string]string{}}
}

func (s *InMemoryStore) Get(key string) (string, bool, error) {
	if s == nil {
		return "", false, errors.New("in-memory store: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *InMemoryStore) Set(key, value string) error {
	if s == nil {
		return errors.New("in-memory store: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *InMemoryStore) Remove(key string) error {
	if s == nil {
		return errors.New("in-memory store: nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
