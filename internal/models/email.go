package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/inboxkit/mailsync/internal/utils"
)

// Email is an archived email message row, written by the archiver observer.
type Email struct {
	ID          string `gorm:"column:id;type:varchar(50);primaryKey"`
	MailboxID   string `gorm:"column:mailbox_id;type:varchar(50);index;not null"`
	Protocol    string `gorm:"column:protocol;type:varchar(50);index;not null"`
	Folder      string `gorm:"column:folder;type:varchar(100);index;not null"`
	ProtocolUID uint32 `gorm:"column:protocol_uid;index"`
	MessageID   string `gorm:"column:message_id;uniqueIndex;type:varchar(255);not null"`
	IsReply     bool   `gorm:"column:is_reply;default:false"`

	// Core email metadata
	Subject      string         `gorm:"column:subject;type:varchar(1000)"`
	FromAddress  string         `gorm:"column:from_address;type:varchar(255);index"`
	FromName     string         `gorm:"column:from_name;type:varchar(255)"`
	ToAddresses  pq.StringArray `gorm:"column:to_addresses;type:text[]"`
	CcAddresses  pq.StringArray `gorm:"column:cc_addresses;type:text[]"`
	BccAddresses pq.StringArray `gorm:"column:bcc_addresses;type:text[]"`

	// Time information
	SentAt *time.Time `gorm:"column:sent_at;type:timestamp;index"`

	// Content
	BodyText      string `gorm:"column:body_text;type:text"`
	BodyHTML      string `gorm:"column:body_html;type:text"`
	HasAttachment bool   `gorm:"column:has_attachment;default:false"`

	// Standard timestamps
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIDWithPrefix("email", 24)
	}
	e.CreatedAt = utils.Now()
	return nil
}
