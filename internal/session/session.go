// Package session holds the volatile per-session conversation state: the
// ordered transcript and the optional context blob taken from the most
// recently uploaded file. Nothing here survives a process restart.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// Chat roles as they appear on the chat-completion wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of the conversation. Immutable once appended.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session owns one transcript and at most one context blob. The transcript is
// append-only; roles are not validated, a malformed sequence passes through.
type Session struct {
	ID string

	mu         sync.Mutex
	turns      []Turn
	contextTxt string
	hasContext bool
}

// Append adds a turn at the end of the transcript.
func (s *Session) Append(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, Turn{Role: role, Content: content})
}

// Turns returns a copy of the transcript in creation order.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns in the transcript.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// SetContext replaces the context blob wholesale. Previous content is
// discarded, never merged.
func (s *Session) SetContext(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contextTxt = text
	s.hasContext = true
}

// Context returns the current context blob and whether one is set.
func (s *Session) Context() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contextTxt, s.hasContext
}

// Store is an in-memory registry of live sessions keyed by ID.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create registers a new empty session with a fresh ID.
func (st *Store) Create() *Session {
	s := &Session{ID: uuid.NewString()}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session with the given ID, or nil when unknown.
func (st *Store) Get(id string) *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.sessions[id]
}

// Drop forgets a session. All of its state is lost.
func (st *Store) Drop(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}
