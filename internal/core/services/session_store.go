package services

import (
	"sync"
	"time"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

// ChatSession is the live, in-memory history for one persona. It is replaced
// wholesale when the persona changes or a critical error tears it down,
// never mutated across a persona switch.
type ChatSession struct {
	PersonaPrompt string
	History       []domain.ConversationTurn
	CreatedAt     time.Time
}

// Append records one exchange turn.
func (s *ChatSession) Append(role domain.MessageRole, text string) {
	s.History = append(s.History, domain.ConversationTurn{Role: role, Text: text})
}

// SessionStore owns the lifecycle of chat sessions keyed by conversation.
// Rebuilds are serialized: two requests observing "persona changed" at the
// same time cannot overwrite one another mid-flight.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[domain.ConversationID]*ChatSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[domain.ConversationID]*ChatSession)}
}

// Acquire returns the session for a conversation, creating or replacing it
// when none exists or the active persona prompt changed. The returned bool
// reports whether a fresh session was built.
func (st *SessionStore) Acquire(id domain.ConversationID, personaPrompt string) (*ChatSession, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if sess, ok := st.sessions[id]; ok && sess.PersonaPrompt == personaPrompt {
		return sess, false
	}
	sess := &ChatSession{
		PersonaPrompt: personaPrompt,
		CreatedAt:     time.Now(),
	}
	st.sessions[id] = sess
	return sess, true
}

// Destroy tears down the session for a conversation, forcing the next
// request to rebuild it. Used after critical loop errors.
func (st *SessionStore) Destroy(id domain.ConversationID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len reports the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
