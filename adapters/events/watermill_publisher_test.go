package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pinftbay/piauth/core"
	"github.com/stretchr/testify/require"
)

func TestWatermillPublisherPublishVerified(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	messages, err := pubSub.Subscribe(ctx, VerifiedTopic)
	require.NoError(t, err)

	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	session := core.Session{
		UserID:    "abc123",
		Username:  "alice",
		Roles:     []string{"user"},
		IssuedAt:  issued,
		ExpiresAt: issued.Add(7 * 24 * time.Hour),
	}

	pub := NewWatermillPublisher(pubSub)
	require.NoError(t, pub.PublishVerified(ctx, session, core.ModeSandbox))

	select {
	case msg := <-messages:
		msg.Ack()
		var event VerifiedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		require.Equal(t, "abc123", event.UserID)
		require.Equal(t, "alice", event.Username)
		require.Equal(t, core.ModeSandbox, event.Mode)
		require.True(t, event.ExpiresAt.Equal(session.ExpiresAt))
		require.NotEmpty(t, msg.UUID)
	case <-ctx.Done():
		t.Fatal("timed out waiting for verified event")
	}
}

func TestWatermillPublisherClosed(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	require.NoError(t, pubSub.Close())

	err := NewWatermillPublisher(pubSub).PublishVerified(context.Background(), core.Session{UserID: "abc123"}, core.ModeProduction)
	require.Error(t, err)
}
