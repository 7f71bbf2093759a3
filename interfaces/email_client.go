package interfaces

import (
	"context"
	"io"

	"github.com/inboxkit/mailsync/internal/models"
)

// EmailClient is the capability contract a mail protocol implementation
// satisfies. One concrete implementation targets IMAP; JMAP or vendor REST
// clients can satisfy the same contract.
//
// A client owns its underlying session exclusively. Sessions are acquired
// lazily on first use and released on Close.
type EmailClient interface {
	// ListMessages returns the messages matching the filter, header fully
	// populated, body unset, attachment descriptors present without bytes.
	ListMessages(ctx context.Context, filter models.EmailFilterParameters) ([]*models.EmailMessage, error)

	// FetchBody downloads and decodes the message body, stores it on the
	// message and returns it. Fetching the same message twice within one
	// session does not issue a second raw download.
	FetchBody(ctx context.Context, message *models.EmailMessage) (*models.EmailBody, error)

	// FetchAttachment returns an in-memory reader over the attachment's
	// decoded bytes, positioned at the start. It does not persist anything.
	FetchAttachment(ctx context.Context, message *models.EmailMessage, attachment *models.AttachmentMetadata) (io.Reader, error)

	// Close logs out and releases the session. Safe to call when no
	// session was ever established.
	Close() error
}
