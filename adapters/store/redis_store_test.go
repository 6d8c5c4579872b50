package store

import (
	"context"
	"testing"
	"time"

	"github.com/pinftbay/piauth/core"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a throwaway Redis container and returns a client for it.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	return client
}

func TestRedisStore(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	s := NewRedisStore(client)

	_, err := s.Get(ctx, "abc123")
	require.ErrorIs(t, err, core.ErrChallengeNotFound)

	issued := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.Put(ctx, "abc123", testChallenge("abc123", "first", issued)))
	require.NoError(t, s.Put(ctx, "abc123", testChallenge("abc123", "second", issued)))

	got, err := s.Get(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, "second", got.Value)
	require.Equal(t, "abc123", got.UserID)
	require.True(t, got.IssuedAt.Equal(issued))
	require.True(t, got.ExpiresAt.Equal(issued.Add(5*time.Minute)))

	ttl, err := client.TTL(ctx, "piauth:challenge:abc123").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, 5*time.Minute)

	require.NoError(t, s.Expire(ctx, "abc123"))
	_, err = s.Get(ctx, "abc123")
	require.ErrorIs(t, err, core.ErrChallengeNotFound)
}
