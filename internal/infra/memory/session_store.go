package memory

import (
	"context"
	"sync"

	"archui-experiment-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore, used in
// tests and redis-less runs. Snapshots do not survive a restart.
type SessionStore struct {
	mu        sync.RWMutex
	snapshots map[string]domain.SessionSnapshot
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		snapshots: make(map[string]domain.SessionSnapshot),
	}
}

func (s *SessionStore) Load(_ context.Context, participantID string) (domain.SessionSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[participantID]
	return snapshot, ok, nil
}

func (s *SessionStore) Save(_ context.Context, snapshot domain.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.ParticipantID] = snapshot
	return nil
}
