package interfaces

import (
	"context"

	"github.com/inboxkit/mailsync/internal/models"
)

// EventPublisher pushes sync events to a message broker.
type EventPublisher interface {
	PublishEmailSynced(ctx context.Context, message *models.EmailMessage) error
	Close() error
}
