// Package session holds preview state between the preview and commit
// calls. Sessions are in-memory and expire after a TTL; a lost session
// just means the user re-uploads the file.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/statements/internal/domain/importer/parser"
	"github.com/ledgerline/statements/internal/domain/importer/sniffer"
)

var ErrNotFound = errors.New("import session not found or expired")

// Session is the parsed statement awaiting a commit decision
type Session struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	FileID      uuid.UUID
	FileName    string
	Headers     []string
	Rows        []parser.Row
	Warnings    []parser.Warning
	Suggested   sniffer.ColumnMapping
	Fingerprint string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Store keeps sessions keyed by ID with TTL expiry
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a session store with the given TTL
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Put registers a new session and stamps its expiry
func (s *Store) Put(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.CreatedAt = s.now()
	session.ExpiresAt = session.CreatedAt.Add(s.ttl)
	s.sessions[session.ID] = session
}

// Get returns the session if it exists, belongs to the user and has
// not expired. Expired sessions are dropped on access.
func (s *Store) Get(id, userID uuid.UUID) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok || session.UserID != userID {
		return nil, ErrNotFound
	}
	if s.now().After(session.ExpiresAt) {
		delete(s.sessions, id)
		return nil, ErrNotFound
	}
	return session, nil
}

// Delete removes a session, typically after a successful commit
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Sweep drops all expired sessions and returns them so the caller can
// release whatever they reference, such as the stored statement file
func (s *Store) Sweep() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var removed []*Session
	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, id)
			removed = append(removed, session)
		}
	}
	return removed
}

// Len reports the number of live sessions, expired or not
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
