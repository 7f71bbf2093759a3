package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/inboxkit/mailsync/internal/utils"
)

// EmailAttachment records an attachment that was downloaded and uploaded
// to object storage by the attachment uploader observer.
type EmailAttachment struct {
	ID          string `gorm:"type:varchar(50);primaryKey"`
	EmailID     string `gorm:"type:varchar(50);index;not null"`
	MessageID   string `gorm:"type:varchar(255);index;not null"`
	Filename    string `gorm:"type:varchar(500)"`
	ContentType string `gorm:"type:varchar(255)"`
	Size        int64  `gorm:"default:0"`

	// Storage options
	StorageService string `gorm:"type:varchar(50)"`
	StorageBucket  string `gorm:"type:varchar(255)"`
	StorageKey     string `gorm:"type:varchar(1000)"`

	// SHA-256 hash of content
	ContentHash string `gorm:"type:varchar(64);index"`

	// Standard timestamps
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

// TableName overrides the table name for EmailAttachment
func (EmailAttachment) TableName() string {
	return "email_attachments"
}

func (e *EmailAttachment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIDWithPrefix("file", 12)
	}
	e.CreatedAt = utils.Now()
	return nil
}
