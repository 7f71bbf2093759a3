package observers

import (
	"context"
	"io"

	"github.com/inboxkit/mailsync/interfaces"
	"github.com/inboxkit/mailsync/internal/logger"
	"github.com/inboxkit/mailsync/internal/models"
)

// EventPublisherObserver emits an email-synced event for every processed
// message. It never votes for downloads; it only reacts to messages the
// pass already decided to sync.
type EventPublisherObserver struct {
	publisher interfaces.EventPublisher
	log       logger.Logger
}

func NewEventPublisherObserver(publisher interfaces.EventPublisher, log logger.Logger) *EventPublisherObserver {
	return &EventPublisherObserver{
		publisher: publisher,
		log:       log,
	}
}

func (o *EventPublisherObserver) Name() string {
	return "event-publisher"
}

func (o *EventPublisherObserver) ShouldDownloadBody(ctx context.Context, message *models.EmailMessage) (bool, error) {
	return false, nil
}

func (o *EventPublisherObserver) ShouldProcessAttachment(ctx context.Context, message *models.EmailMessage, attachment *models.AttachmentMetadata) (bool, error) {
	return false, nil
}

func (o *EventPublisherObserver) ProcessAttachment(ctx context.Context, message *models.EmailMessage, attachment *models.AttachmentMetadata, content io.Reader) error {
	return nil
}

func (o *EventPublisherObserver) ProcessMessage(ctx context.Context, message *models.EmailMessage) error {
	return o.publisher.PublishEmailSynced(ctx, message)
}
