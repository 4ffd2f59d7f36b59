package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/oops/vm"
)

// handle is a server-side reference to a value produced in a session.
type handle struct {
	id        string
	value     vm.Value
	sessionID string
	created   time.Time
	lastUsed  time.Time
}

// HandleStore maps opaque string IDs to values so clients can inspect
// and send messages to results of earlier evaluations.
type HandleStore struct {
	mu      sync.Mutex
	handles map[string]*handle
}

// NewHandleStore creates an empty handle store.
func NewHandleStore() *HandleStore {
	return &HandleStore{handles: make(map[string]*handle)}
}

// Create registers a value owned by sessionID and returns its handle ID.
func (s *HandleStore) Create(value vm.Value, sessionID string) string {
	id := "h-" + uuid.NewString()
	now := time.Now()

	s.mu.Lock()
	s.handles[id] = &handle{
		id:        id,
		value:     value,
		sessionID: sessionID,
		created:   now,
		lastUsed:  now,
	}
	s.mu.Unlock()
	return id
}

// Lookup returns the value and owning session for a handle.
func (s *HandleStore) Lookup(id string) (vm.Value, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[id]
	if !ok {
		return vm.Nil, "", false
	}
	h.lastUsed = time.Now()
	return h.value, h.sessionID, true
}

// Release removes a handle.
func (s *HandleStore) Release(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handles[id]
	delete(s.handles, id)
	return ok
}

// ReleaseSession releases all handles owned by a session.
func (s *HandleStore) ReleaseSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, h := range s.handles {
		if h.sessionID == sessionID {
			delete(s.handles, id)
		}
	}
}

// Len returns the number of live handles.
func (s *HandleStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Sweep removes handles that haven't been accessed within the TTL.
func (s *HandleStore) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, h := range s.handles {
		if h.lastUsed.Before(cutoff) {
			delete(s.handles, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs periodic TTL sweeps in the background.
// Returns a stop function.
func (s *HandleStore) StartSweeper(interval, ttl time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				s.Sweep(ttl)
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
