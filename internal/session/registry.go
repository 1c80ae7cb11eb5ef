package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lacomanda/pos-terminal/internal/cart"
	"github.com/lacomanda/pos-terminal/internal/checkout"
	"github.com/lacomanda/pos-terminal/internal/combo"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// ErrSubmissionInFlight is returned when a submit is already pending for
// the session.
var ErrSubmissionInFlight = errors.New("submission already in flight")

// Session is one waiter's working order. Access is serialized by the
// session mutex; handlers lock for every read or mutation so the draft and
// the combo editor never see interleaved writes.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	Draft      *cart.Draft
	Editor     *combo.Editor
	Meta       checkout.OrderMeta
	Dropped    int
	submitting bool
	elevated   bool
}

// Lock takes the session mutex.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session mutex.
func (s *Session) Unlock() { s.mu.Unlock() }

// BeginSubmit flags the session as submitting. A second submit while one is
// pending fails with ErrSubmissionInFlight. Callers must hold the lock.
func (s *Session) BeginSubmit() error {
	if s.submitting {
		return ErrSubmissionInFlight
	}
	s.submitting = true
	return nil
}

// EndSubmit clears the submitting flag. Callers must hold the lock.
func (s *Session) EndSubmit() {
	s.submitting = false
}

// Submitting reports whether a submit is pending. Callers must hold the lock.
func (s *Session) Submitting() bool {
	return s.submitting
}

// Elevate arms a one-shot privilege grant for the next persisted-line
// mutation. Callers must hold the lock.
func (s *Session) Elevate() {
	s.elevated = true
}

// ConsumeElevation uses up the one-shot grant if armed. Callers must hold
// the lock.
func (s *Session) ConsumeElevation() bool {
	if !s.elevated {
		return false
	}
	s.elevated = false
	return true
}

// Registry holds live sessions for this terminal.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Open creates a session with an empty draft.
func (r *Registry) Open() *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Draft:     &cart.Draft{},
		Editor:    combo.NewEditor(),
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get resolves a session by id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close discards a session. Closing an unknown id is not an error.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
