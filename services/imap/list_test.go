package imap

import (
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxkit/mailsync/internal/enum"
)

func TestNewEmailMessage_HeaderMapping(t *testing.T) {
	sent := time.Date(2025, 6, 2, 14, 30, 0, 0, time.FixedZone("CEST", 2*3600))

	msg := &imap.Message{
		Uid: 77,
		Envelope: &imap.Envelope{
			MessageId: "<rep-1@example.com>",
			InReplyTo: "<orig@example.com>",
			Subject:   "Re: weekly report",
			Date:      sent,
			From: []*imap.Address{
				{PersonalName: "Jane Doe", MailboxName: "jane", HostName: "example.com"},
			},
			To: []*imap.Address{
				{MailboxName: "ops", HostName: "example.com"},
				{MailboxName: "audit", HostName: "example.com"},
			},
			Cc: []*imap.Address{
				{MailboxName: "cc", HostName: "example.com"},
			},
		},
	}

	email := newEmailMessage("INBOX", msg)

	assert.Equal(t, enum.ProtocolIMAP, email.Metadata.Protocol)
	assert.Equal(t, uint32(77), email.Metadata.ProtocolUID)
	assert.Equal(t, "INBOX", email.Metadata.FolderName)
	// message id is normalized without angle brackets
	assert.Equal(t, "rep-1@example.com", email.Metadata.GlobalMessageID)
	assert.True(t, email.Metadata.IsReply)

	assert.Equal(t, "Re: weekly report", email.Header.Subject)
	require.NotNil(t, email.Header.Sender)
	assert.Equal(t, "Jane Doe", email.Header.Sender.DisplayName)
	assert.Equal(t, "jane@example.com", email.Header.Sender.Address)

	require.Len(t, email.Header.To, 2)
	assert.Equal(t, "ops@example.com", email.Header.To[0].Address)
	assert.Equal(t, "audit@example.com", email.Header.To[1].Address)
	require.Len(t, email.Header.Cc, 1)

	require.NotNil(t, email.Header.SentAt)
	assert.Equal(t, sent.UTC(), *email.Header.SentAt)

	// listing never carries a body
	assert.Nil(t, email.Content.Body)
}

func TestNewEmailMessage_NotAReplyWithoutInReplyTo(t *testing.T) {
	msg := &imap.Message{
		Uid:      5,
		Envelope: &imap.Envelope{MessageId: "<plain@example.com>"},
	}

	email := newEmailMessage("INBOX", msg)

	assert.False(t, email.Metadata.IsReply)
	assert.Nil(t, email.Header.SentAt)
	assert.Nil(t, email.Header.Sender)
}

func TestCollectAttachments_WalksNestedParts(t *testing.T) {
	bs := &imap.BodyStructure{
		MIMEType:    "multipart",
		MIMESubType: "mixed",
		Parts: []*imap.BodyStructure{
			{
				MIMEType:    "multipart",
				MIMESubType: "alternative",
				Parts: []*imap.BodyStructure{
					{MIMEType: "text", MIMESubType: "plain"},
					{MIMEType: "text", MIMESubType: "html"},
				},
			},
			{
				MIMEType:          "application",
				MIMESubType:       "PDF",
				Disposition:       "attachment",
				DispositionParams: map[string]string{"filename": "invoice.pdf"},
				Size:              2048,
			},
			{
				MIMEType:    "image",
				MIMESubType: "png",
				Disposition: "inline",
				Params:      map[string]string{"name": "logo.png"},
			},
			{
				MIMEType:    "message",
				MIMESubType: "rfc822",
				Size:        512,
			},
		},
	}

	attachments := collectAttachments(bs)

	require.Len(t, attachments, 3)

	assert.Equal(t, "invoice.pdf", attachments[0].FileName)
	assert.Equal(t, "application/pdf", attachments[0].MimeType)
	require.NotNil(t, attachments[0].Size)
	assert.Equal(t, int64(2048), *attachments[0].Size)

	// inline part with a filename counts as an attachment
	assert.Equal(t, "logo.png", attachments[1].FileName)
	assert.Equal(t, "image/png", attachments[1].MimeType)
	assert.Nil(t, attachments[1].Size)

	// an attached message is kept whole as one descriptor
	assert.Equal(t, "message/rfc822", attachments[2].MimeType)
}

func TestCollectAttachments_TextBodyIsNotAnAttachment(t *testing.T) {
	bs := &imap.BodyStructure{
		MIMEType:    "text",
		MIMESubType: "plain",
		Size:        100,
	}

	assert.Empty(t, collectAttachments(bs))
}

func TestCollectAttachments_NilBodyStructure(t *testing.T) {
	assert.Empty(t, collectAttachments(nil))
}

func TestIsAttachmentPart_InlineTextWithFilenameExcluded(t *testing.T) {
	bs := &imap.BodyStructure{
		MIMEType:    "text",
		MIMESubType: "plain",
		Disposition: "inline",
		Params:      map[string]string{"name": "footer.txt"},
	}

	assert.False(t, isAttachmentPart(bs))
}
