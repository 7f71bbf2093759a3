package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/inboxkit/mailsync/interfaces"
	"github.com/inboxkit/mailsync/internal/models"
	"github.com/inboxkit/mailsync/internal/tracing"
	"github.com/inboxkit/mailsync/internal/utils"
)

type syncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) interfaces.SyncStateRepository {
	return &syncStateRepository{db: db}
}

// GetOrCreateSyncState retrieves the cursor for a mailbox folder, creating
// a zero-valued record on first sync.
func (r *syncStateRepository) GetOrCreateSyncState(ctx context.Context, mailboxID, folderName string) (*models.SyncState, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.GetOrCreateSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("mailbox.id", mailboxID)
	span.SetTag("folder.name", folderName)

	var state models.SyncState
	result := r.db.WithContext(ctx).
		Where("mailbox_id = ? AND folder_name = ?", mailboxID, folderName).
		First(&state)

	if result.Error == nil {
		return &state, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		tracing.TraceErr(span, result.Error)
		return nil, errors.Wrap(result.Error, "failed to get sync state")
	}

	state = models.SyncState{
		MailboxID:  mailboxID,
		FolderName: folderName,
		LastUID:    0,
		LastSyncAt: nil,
	}
	if err := r.db.WithContext(ctx).Create(&state).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to create sync state")
	}

	span.SetTag("created", true)
	return &state, nil
}

// SaveSyncState writes the cursor back wholesale, last writer wins.
func (r *syncStateRepository) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.SaveSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("mailbox.id", state.MailboxID)
	span.SetTag("folder.name", state.FolderName)
	span.SetTag("last.uid", state.LastUID)

	result := r.db.WithContext(ctx).
		Model(&models.SyncState{}).
		Where("mailbox_id = ? AND folder_name = ?", state.MailboxID, state.FolderName).
		Updates(map[string]interface{}{
			"last_uid":     state.LastUID,
			"last_sync_at": state.LastSyncAt,
			"updated_at":   utils.Now(),
		})

	if result.RowsAffected == 0 && result.Error == nil {
		result = r.db.WithContext(ctx).Create(state)
	}

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return errors.Wrap(result.Error, "failed to save sync state")
	}

	return nil
}

// DeleteSyncState removes the cursor, forcing a full resync on the next pass.
func (r *syncStateRepository) DeleteSyncState(ctx context.Context, mailboxID, folderName string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncStateRepository.DeleteSyncState")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).
		Where("mailbox_id = ? AND folder_name = ?", mailboxID, folderName).
		Delete(&models.SyncState{})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return errors.Wrap(result.Error, "failed to delete sync state")
	}

	return nil
}
