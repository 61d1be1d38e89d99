package session

import (
	"fmt"
	"sync"

	"structgen/chat"
)

// Store persists conversations keyed by session ID so callers can continue
// a dialogue across calls and processes.
type Store interface {
	// Get returns the conversation for sessionID, creating an empty one
	// lazily when the session does not exist yet.
	Get(sessionID string) (chat.Conversation, error)

	// Save stores the conversation snapshot under sessionID.
	Save(sessionID string, conv chat.Conversation) error

	// Append extends the stored conversation and returns the result.
	Append(sessionID string, turns ...chat.Turn) (chat.Conversation, error)

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(sessionID string) error
}

// InMemoryStore is a volatile Store implementation keeping conversations in
// a process local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo tools. Conversations have value semantics, so
// callers can never mutate stored state through a returned value.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]chat.Conversation
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]chat.Conversation)}
}

// Get returns an existing conversation or an empty one for a new session.
func (s *InMemoryStore) Get(sessionID string) (chat.Conversation, error) {
	if sessionID == "" {
		return chat.Conversation{}, fmt.Errorf("session: empty session id")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID], nil
}

// Save stores the conversation snapshot under sessionID.
func (s *InMemoryStore) Save(sessionID string, conv chat.Conversation) error {
	if sessionID == "" {
		return fmt.Errorf("session: empty session id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = conv
	return nil
}

// Append extends the stored conversation, creating the session when absent.
func (s *InMemoryStore) Append(sessionID string, turns ...chat.Turn) (chat.Conversation, error) {
	if sessionID == "" {
		return chat.Conversation{}, fmt.Errorf("session: empty session id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.sessions[sessionID].Append(turns...)
	s.sessions[sessionID] = conv
	return conv, nil
}

// Delete removes the session.
func (s *InMemoryStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// IDs returns the identifiers of all stored sessions.
func (s *InMemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}
