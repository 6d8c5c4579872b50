package ports

import (
	"context"

	"github.com/pinftbay/piauth/core"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishVerified(ctx context.Context, session core.Session, mode core.Mode) error
}
