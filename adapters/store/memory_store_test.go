package store

import (
	"context"
	"testing"
	"time"

	"github.com/pinftbay/piauth/core"
	"github.com/stretchr/testify/require"
)

func testChallenge(userID, value string, issuedAt time.Time) core.Challenge {
	return core.Challenge{
		ID:        "id-" + value,
		UserID:    userID,
		Value:     value,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(5 * time.Minute),
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("missing user", func(t *testing.T) {
		s := NewMemoryStore()
		_, err := s.Get(ctx, "nobody")
		require.ErrorIs(t, err, core.ErrChallengeNotFound)
	})

	t.Run("last write wins", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Put(ctx, "abc123", testChallenge("abc123", "first", issued)))
		require.NoError(t, s.Put(ctx, "abc123", testChallenge("abc123", "second", issued.Add(time.Minute))))

		got, err := s.Get(ctx, "abc123")
		require.NoError(t, err)
		require.Equal(t, "second", got.Value)
		require.Equal(t, 1, s.Len())
	})

	t.Run("keeps expired records", func(t *testing.T) {
		s := NewMemoryStore()
		old := testChallenge("abc123", "stale", issued.Add(-time.Hour))
		require.NoError(t, s.Put(ctx, "abc123", old))

		got, err := s.Get(ctx, "abc123")
		require.NoError(t, err)
		require.True(t, got.Expired(issued))
	})

	t.Run("expire is idempotent", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Put(ctx, "abc123", testChallenge("abc123", "c", issued)))
		require.NoError(t, s.Expire(ctx, "abc123"))
		require.NoError(t, s.Expire(ctx, "abc123"))

		_, err := s.Get(ctx, "abc123")
		require.ErrorIs(t, err, core.ErrChallengeNotFound)
		require.Zero(t, s.Len())
	})
}
