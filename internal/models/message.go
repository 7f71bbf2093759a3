package models

import (
	"time"

	"github.com/inboxkit/mailsync/internal/enum"
)

// EmailAddress is one mailbox participant.
type EmailAddress struct {
	DisplayName string
	Address     string
}

// EmailHeader carries envelope-level metadata. It is fully populated at
// listing time.
type EmailHeader struct {
	Subject string
	Sender  *EmailAddress
	To      []EmailAddress
	Cc      []EmailAddress
	Bcc     []EmailAddress
	// SentAt is the client-clock send time in UTC, not the server
	// received time.
	SentAt *time.Time
}

// AttachmentMetadata describes one attachment part. Size is unknown until
// the part is listed with octets, DownloadedRef stays empty until a
// download completes.
type AttachmentMetadata struct {
	FileName      string
	MimeType      string
	Size          *int64
	DownloadedRef string
}

// EmailBody is a decoded message body.
type EmailBody struct {
	Text   string
	IsHTML bool
}

// EmailContent is the lazily populated payload of a message. Body is nil
// until fetched; attachment descriptors are present from listing time even
// when their bytes are not.
type EmailContent struct {
	Body        *EmailBody
	Attachments []*AttachmentMetadata
}

// EmailMetadata is the protocol identity of a message. ProtocolUID is only
// meaningful together with FolderName; GlobalMessageID is the one stable
// cross-protocol key.
type EmailMetadata struct {
	GlobalMessageID string
	Protocol        enum.Protocol
	ProtocolUID     uint32
	FolderName      string
	IsReply         bool
}

// EmailMessage is the aggregate a protocol client produces and observers
// consume. Content starts with the body unset.
type EmailMessage struct {
	Metadata EmailMetadata
	Header   EmailHeader
	Content  EmailContent
}

// EmailFilterParameters describes one listing request. AfterUID is an
// exclusive lower bound; zero means no lower bound.
type EmailFilterParameters struct {
	Folder   string
	Subject  string
	AfterUID uint32
}
