package interfaces

import (
	"context"

	"github.com/inboxkit/mailsync/internal/models"
)

// SyncStateRepository persists the sync cursor. The store guarantees
// last-writer-wins durability; optimistic concurrency is its concern, not
// the orchestrator's.
type SyncStateRepository interface {
	// GetOrCreateSyncState returns the cursor for a mailbox folder,
	// creating a zero-valued record when none exists yet.
	GetOrCreateSyncState(ctx context.Context, mailboxID, folderName string) (*models.SyncState, error)

	// SaveSyncState writes the cursor back wholesale.
	SaveSyncState(ctx context.Context, state *models.SyncState) error

	// DeleteSyncState removes the cursor for a mailbox folder.
	DeleteSyncState(ctx context.Context, mailboxID, folderName string) error
}

type EmailRepository interface {
	Create(ctx context.Context, email *models.Email) error
	GetByMessageID(ctx context.Context, messageID string) (*models.Email, error)
}

type EmailAttachmentRepository interface {
	Create(ctx context.Context, attachment *models.EmailAttachment) error
	ListByEmailID(ctx context.Context, emailID string) ([]*models.EmailAttachment, error)
}
