package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"archui-experiment-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore persists session snapshots (participant id, assignment,
// selected task) as JSON values in Redis so a session survives process
// restarts. A zero TTL keeps snapshots until explicitly replaced.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Load(ctx context.Context, participantID string) (domain.SessionSnapshot, bool, error) {
	raw, err := s.client.Get(ctx, s.key(participantID)).Result()
	if err == redis.Nil {
		return domain.SessionSnapshot{}, false, nil
	}
	if err != nil {
		return domain.SessionSnapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	var snapshot domain.SessionSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return domain.SessionSnapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snapshot, true, nil
}

func (s *SessionStore) Save(ctx context.Context, snapshot domain.SessionSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key(snapshot.ParticipantID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SessionStore) key(participantID string) string {
	return "experiment:session:" + participantID
}
