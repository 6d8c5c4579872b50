package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/pinftbay/piauth/core"
	"github.com/pinftbay/piauth/ports"
)

// VerifiedTopic receives an event every time a session is issued
const VerifiedTopic = "piauth.verified"

// VerifiedEvent represents a successful verification
type VerifiedEvent struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	Verified  bool      `json:"verified"`
	Mode      core.Mode `json:"mode"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     VerifiedTopic,
	}
}

// PublishVerified publishes a verified event
func (p *WatermillPublisher) PublishVerified(ctx context.Context, session core.Session, mode core.Mode) error {
	event := VerifiedEvent{
		UserID:    session.UserID,
		Username:  session.Username,
		Roles:     session.Roles,
		Verified:  session.Verified,
		Mode:      mode,
		IssuedAt:  session.IssuedAt,
		ExpiresAt: session.ExpiresAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher drops every event
type NopPublisher struct{}

var _ ports.EventPublisher = NopPublisher{}

// PublishVerified does nothing
func (NopPublisher) PublishVerified(context.Context, core.Session, core.Mode) error {
	return nil
}
