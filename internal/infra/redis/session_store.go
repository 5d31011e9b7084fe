package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps token sessions in Redis so every instance sees logouts.
// Each session is a string key holding the user id, expiring with the token.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Create(ctx context.Context, tokenID, userID string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(tokenID), userID, ttl).Err()
}

func (s *SessionStore) Lookup(ctx context.Context, tokenID string) (string, bool, error) {
	userID, err := s.client.Get(ctx, s.key(tokenID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

func (s *SessionStore) Revoke(ctx context.Context, tokenID string) error {
	return s.client.Del(ctx, s.key(tokenID)).Err()
}

func (s *SessionStore) key(tokenID string) string {
	return "auth:session:" + tokenID
}
