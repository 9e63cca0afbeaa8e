// Package memory provides an in-memory message store for tests and
// single-process deployments. All data is lost on Close.
package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rbaliyan/messages/store"
)

// Store is an in-memory implementation of store.Store.
// Safe for concurrent use.
type Store struct {
	// messages maps message ID to *store.MessageData.
	messages sync.Map
	// locks maps message ID to *sync.Mutex for per-message mutations.
	locks sync.Map
	// mu serializes batch inserts so duplicate checks stay atomic.
	mu sync.Mutex

	connected int32
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// Connect marks the store as ready.
func (s *Store) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	return nil
}

// Close discards all messages and marks the store closed.
func (s *Store) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 1, 0) {
		return store.ErrNotConnected
	}
	s.messages.Range(func(key, _ any) bool {
		s.messages.Delete(key)
		return true
	})
	s.locks.Range(func(key, _ any) bool {
		s.locks.Delete(key)
		return true
	})
	return nil
}

// Connected reports whether the store is usable.
func (s *Store) Connected() bool {
	return atomic.LoadInt32(&s.connected) == 1
}

func (s *Store) checkConnected() error {
	if !s.Connected() {
		return store.ErrNotConnected
	}
	return nil
}

// lockFor returns the mutation lock for a message ID.
func (s *Store) lockFor(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// load returns a clone of the stored message, or nil.
func (s *Store) load(id string) *store.MessageData {
	v, ok := s.messages.Load(id)
	if !ok {
		return nil
	}
	return v.(*store.MessageData).Clone()
}

// mutate applies fn to a clone of the message under its lock and stores
// the result. fn returning an error aborts without storing.
func (s *Store) mutate(id string, fn func(*store.MessageData) error) error {
	if id == "" {
		return store.ErrInvalidID
	}
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	msg := s.load(id)
	if msg == nil {
		return store.ErrNotFound
	}
	if err := fn(msg); err != nil {
		return err
	}
	s.messages.Store(id, msg)
	return nil
}
