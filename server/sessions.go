package server

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/oops/vm"
)

// DefaultSessionName names the session used by requests that carry no
// session ID.
const DefaultSessionName = "default"

// Session is an isolated workspace: its own interpreter, class table and
// globals, served by its own Worker.
type Session struct {
	ID      string
	Name    string
	Created time.Time

	worker *Worker
	out    *bytes.Buffer // Transcript output, touched only on the worker
}

// Worker returns the session's worker.
func (s *Session) Worker() *Worker {
	return s.worker
}

// SessionStore manages workspace sessions.
type SessionStore struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	defaultID string
	handles   *HandleStore
	opts      []vm.Option
}

// NewSessionStore creates a store whose sessions build interpreters with
// opts. The default session is created immediately.
func NewSessionStore(handles *HandleStore, opts ...vm.Option) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*Session),
		handles:  handles,
		opts:     opts,
	}
	s.defaultID = s.Create(DefaultSessionName).ID
	return s
}

// Create starts a new session with an optional name.
func (s *SessionStore) Create(name string) *Session {
	out := &bytes.Buffer{}
	opts := append(append([]vm.Option(nil), s.opts...), vm.WithOutput(out))

	session := &Session{
		ID:      uuid.NewString(),
		Name:    name,
		Created: time.Now(),
		worker:  NewWorker(vm.New(opts...)),
		out:     out,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session
}

// Get retrieves a session by ID. An empty ID selects the default session.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id == "" {
		id = s.defaultID
	}
	session, ok := s.sessions[id]
	return session, ok
}

// Default returns the default session.
func (s *SessionStore) Default() *Session {
	session, _ := s.Get("")
	return session
}

// Destroy stops a session and releases its handles. The default session
// cannot be destroyed. It reports whether a session was removed.
func (s *SessionStore) Destroy(id string) bool {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if !ok || id == s.defaultID {
		s.mu.Unlock()
		return false
	}
	delete(s.sessions, id)
	s.mu.Unlock()

	session.worker.Stop()
	s.handles.ReleaseSession(id)
	return true
}

// List returns all sessions, oldest first.
func (s *SessionStore) List() []*Session {
	s.mu.RLock()
	result := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		result = append(result, session)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Created.Equal(result[j].Created) {
			return result[i].ID < result[j].ID
		}
		return result[i].Created.Before(result[j].Created)
	})
	return result
}

// StopAll stops every session's worker.
func (s *SessionStore) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		session.worker.Stop()
		delete(s.sessions, id)
	}
}
