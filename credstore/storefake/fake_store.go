package storefake

import (
	"sync"

	"github.com/jrsteele09/stockscope-client/credstore"
)

var _ credstore.Store = (*FakeStore)(nil)

// FakeStore is an in-memory credstore.Store. Failures can be injected per operation.
type FakeStore struct {
	values map[string]string
	fail   map[string]error // operation -> error
	writes int
	lock   sync.RWMutex
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		values: make(map[string]string),
		fail:   make(map[string]error),
	}
}

// FailOn makes every subsequent call of operation ("get", "set", "delete") return err.
// A nil err clears the failure.
func (s *FakeStore) FailOn(operation string, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err == nil {
		delete(s.fail, operation)
		return
	}
	s.fail[operation] = err
}

func (s *FakeStore) Get(key string) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if err := s.fail["get"]; err != nil {
		return "", &credstore.StoreError{Operation: "get", Key: key, Cause: err}
	}
	v, ok := s.values[key]
	if !ok {
		return "", credstore.ErrNotFound
	}
	return v, nil
}

func (s *FakeStore) Set(key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.fail["set"]; err != nil {
		return &credstore.StoreError{Operation: "set", Key: key, Cause: err}
	}
	s.values[key] = value
	s.writes++
	return nil
}

func (s *FakeStore) Delete(keys ...string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.fail["delete"]; err != nil {
		return &credstore.StoreError{Operation: "delete", Cause: err}
	}
	for _, k := range keys {
		delete(s.values, k)
	}
	s.writes++
	return nil
}

// Snapshot returns a copy of the stored values.
func (s *FakeStore) Snapshot() map[string]string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Writes counts successful Set and Delete calls.
func (s *FakeStore) Writes() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.writes
}
