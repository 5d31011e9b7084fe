package memory

import (
	"context"
	"sync"
	"time"
)

// SessionStore is an in-memory implementation of app.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	clock    func() time.Time
	sessions map[string]session
}

type session struct {
	userID    string
	expiresAt time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		clock:    time.Now,
		sessions: make(map[string]session),
	}
}

func (s *SessionStore) Create(_ context.Context, tokenID, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.sessions[tokenID] = session{userID: userID, expiresAt: s.clock().Add(ttl)}
	return nil
}

func (s *SessionStore) Lookup(_ context.Context, tokenID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[tokenID]
	if !ok || !sess.expiresAt.After(s.clock()) {
		return "", false, nil
	}
	return sess.userID, true, nil
}

func (s *SessionStore) Revoke(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenID)
	return nil
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return len(s.sessions)
}

func (s *SessionStore) sweepLocked() {
	now := s.clock()
	for id, sess := range s.sessions {
		if !sess.expiresAt.After(now) {
			delete(s.sessions, id)
		}
	}
}
