package storage

import (
	"bytes"
	"errors"
	"sort"
	"sync"
)

var errClosed = errors.New("store is closed")

// MemoryStore keeps pairs in a sorted slice, it's used for tests and one-off
// runs when nothing needs to be persisted.
type MemoryStore struct {
	lock   sync.RWMutex
	pairs  []KeyValue
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) find(key []byte) (int, bool) {
	i := sort.Search(len(s.pairs), func(i int) bool {
		return bytes.Compare(s.pairs[i].Key, key) >= 0
	})
	return i, i < len(s.pairs) && bytes.Equal(s.pairs[i].Key, key)
}

// Get implements the Store interface.
func (s *MemoryStore) Get(key []byte) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.closed {
		return nil, errClosed
	}
	i, ok := s.find(key)
	if !ok {
		return nil, ErrKeyNotFound
	}
	return bytes.Clone(s.pairs[i].Value), nil
}

// Write implements the Store interface.
func (s *MemoryStore) Write(batch ...KeyValue) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return errClosed
	}
	for _, kv := range batch {
		i, ok := s.find(kv.Key)
		switch {
		case kv.Value == nil && ok:
			s.pairs = append(s.pairs[:i], s.pairs[i+1:]...)
		case kv.Value == nil:
		case ok:
			s.pairs[i].Value = bytes.Clone(kv.Value)
		default:
			s.pairs = append(s.pairs, KeyValue{})
			copy(s.pairs[i+1:], s.pairs[i:])
			s.pairs[i] = KeyValue{Key: bytes.Clone(kv.Key), Value: bytes.Clone(kv.Value)}
		}
	}
	return nil
}

// Iterate implements the Store interface. The store must not be written to
// from f.
func (s *MemoryStore) Iterate(prefix []byte, reverse bool, f func(k, v []byte) bool) error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.closed {
		return errClosed
	}
	start, _ := s.find(prefix)
	end := start
	for end < len(s.pairs) && bytes.HasPrefix(s.pairs[end].Key, prefix) {
		end++
	}
	if !reverse {
		for i := start; i < end; i++ {
			if !f(s.pairs[i].Key, s.pairs[i].Value) {
				break
			}
		}
		return nil
	}
	for i := end - 1; i >= start; i-- {
		if !f(s.pairs[i].Key, s.pairs[i].Value) {
			break
		}
	}
	return nil
}

// Close implements the Store interface, the contents are dropped.
func (s *MemoryStore) Close() error {
	s.lock.Lock()
	s.pairs = nil
	s.closed = true
	s.lock.Unlock()
	return nil
}
