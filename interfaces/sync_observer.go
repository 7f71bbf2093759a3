package interfaces

import (
	"context"
	"io"

	"github.com/inboxkit/mailsync/internal/models"
)

// SyncObserver is a policy object consulted for every synced message. Any
// number of observers may be registered; votes are OR-combined and an
// observer never controls the orchestrator's flow. A failing observer is
// logged and treated as a no-vote, it does not abort the pass.
//
// Observers must be idempotent: after a failed pass the same messages may
// be listed, voted on and processed again.
type SyncObserver interface {
	// Name identifies the observer in logs.
	Name() string

	// ShouldDownloadBody votes on downloading the message body.
	ShouldDownloadBody(ctx context.Context, message *models.EmailMessage) (bool, error)

	// ShouldProcessAttachment votes on downloading one attachment.
	ShouldProcessAttachment(ctx context.Context, message *models.EmailMessage, attachment *models.AttachmentMetadata) (bool, error)

	// ProcessAttachment receives the downloaded attachment bytes. It is
	// called once per attachment for every observer that voted true; each
	// observer gets its own reader over the same bytes.
	ProcessAttachment(ctx context.Context, message *models.EmailMessage, attachment *models.AttachmentMetadata, content io.Reader) error
}

// MessageProcessor is an optional extension of SyncObserver. Observers
// implementing it receive every message once, after body download and
// attachment processing completed for that message. Failures are logged
// and do not abort the pass.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, message *models.EmailMessage) error
}
