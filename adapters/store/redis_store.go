package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pinftbay/piauth/core"
	"github.com/pinftbay/piauth/ports"
	"github.com/redis/go-redis/v9"
)

// minChallengeTTL keeps already-expired records readable for a moment so the
// service, not Redis, decides that a challenge expired.
const minChallengeTTL = time.Second

// RedisStore is a Redis implementation of the ChallengeStore interface
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ ports.ChallengeStore = (*RedisStore)(nil)

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "piauth:challenge:",
		now:    time.Now,
	}
}

// Put stores the challenge JSON-encoded with a TTL matching its expiry
func (s *RedisStore) Put(ctx context.Context, userID string, challenge core.Challenge) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	ttl := challenge.ExpiresAt.Sub(s.now())
	if ttl < minChallengeTTL {
		ttl = minChallengeTTL
	}

	if err := s.client.Set(ctx, s.prefix+userID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}

	return nil
}

// Get loads the challenge stored for a user
func (s *RedisStore) Get(ctx context.Context, userID string) (core.Challenge, error) {
	payload, err := s.client.Get(ctx, s.prefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.Challenge{}, core.ErrChallengeNotFound
		}
		return core.Challenge{}, fmt.Errorf("failed to load challenge: %w", err)
	}

	var challenge core.Challenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return core.Challenge{}, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}

	return challenge, nil
}

// Expire deletes the challenge stored for a user
func (s *RedisStore) Expire(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.prefix+userID).Err(); err != nil {
		return fmt.Errorf("failed to expire challenge: %w", err)
	}

	return nil
}
