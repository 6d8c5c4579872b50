package ports

import (
	"context"

	"github.com/pinftbay/piauth/core"
)

// ChallengeStore keeps the most recent challenge per Pi user id
type ChallengeStore interface {
	// Put records a challenge, replacing any earlier one for the same user
	Put(ctx context.Context, userID string, challenge core.Challenge) error

	// Get returns the stored challenge or core.ErrChallengeNotFound
	Get(ctx context.Context, userID string) (core.Challenge, error)

	// Expire removes the challenge for a user; removing a missing one is not an error
	Expire(ctx context.Context, userID string) error
}
