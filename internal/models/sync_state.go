package models

import (
	"time"
)

// SyncState is the persisted cursor for one mailbox folder. LastUID is a
// high-water-mark that only moves forward on completed passes.
type SyncState struct {
	ID         string     `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	MailboxID  string     `gorm:"column:mailbox_id;type:varchar(50);index;not null"`
	FolderName string     `gorm:"column:folder_name;type:varchar(100);index;not null"`
	LastUID    uint32     `gorm:"column:last_uid;not null"`
	LastSyncAt *time.Time `gorm:"column:last_sync_at;type:timestamp"`
	CreatedAt  time.Time  `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (SyncState) TableName() string {
	return "sync_states"
}
