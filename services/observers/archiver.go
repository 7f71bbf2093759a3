package observers

import (
	"context"
	"io"

	"github.com/lib/pq"
	"github.com/opentracing/opentracing-go"

	"github.com/inboxkit/mailsync/interfaces"
	"github.com/inboxkit/mailsync/internal/logger"
	"github.com/inboxkit/mailsync/internal/models"
	"github.com/inboxkit/mailsync/internal/tracing"
)

// ArchiverObserver persists every synced message as an archived email row.
// It votes to download every body and leaves attachments to the uploader.
// Already-archived messages are skipped, so re-listing after a failed pass
// does not duplicate rows.
type ArchiverObserver struct {
	mailboxID string
	emails    interfaces.EmailRepository
	log       logger.Logger
}

func NewArchiverObserver(mailboxID string, emails interfaces.EmailRepository, log logger.Logger) *ArchiverObserver {
	return &ArchiverObserver{
		mailboxID: mailboxID,
		emails:    emails,
		log:       log,
	}
}

func (o *ArchiverObserver) Name() string {
	return "archiver"
}

func (o *ArchiverObserver) ShouldDownloadBody(ctx context.Context, message *models.EmailMessage) (bool, error) {
	existing, err := o.emails.GetByMessageID(ctx, message.Metadata.GlobalMessageID)
	if err != nil {
		return false, err
	}
	return existing == nil, nil
}

func (o *ArchiverObserver) ShouldProcessAttachment(ctx context.Context, message *models.EmailMessage, attachment *models.AttachmentMetadata) (bool, error) {
	return false, nil
}

func (o *ArchiverObserver) ProcessAttachment(ctx context.Context, message *models.EmailMessage, attachment *models.AttachmentMetadata, content io.Reader) error {
	return nil
}

func (o *ArchiverObserver) ProcessMessage(ctx context.Context, message *models.EmailMessage) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ArchiverObserver.ProcessMessage")
	defer span.Finish()
	tracing.TagComponentObserver(span)
	span.SetTag("message.id", message.Metadata.GlobalMessageID)

	existing, err := o.emails.GetByMessageID(ctx, message.Metadata.GlobalMessageID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	email := &models.Email{
		MailboxID:     o.mailboxID,
		Protocol:      message.Metadata.Protocol.String(),
		Folder:        message.Metadata.FolderName,
		ProtocolUID:   message.Metadata.ProtocolUID,
		MessageID:     message.Metadata.GlobalMessageID,
		IsReply:       message.Metadata.IsReply,
		Subject:       message.Header.Subject,
		ToAddresses:   addressList(message.Header.To),
		CcAddresses:   addressList(message.Header.Cc),
		BccAddresses:  addressList(message.Header.Bcc),
		SentAt:        message.Header.SentAt,
		HasAttachment: len(message.Content.Attachments) > 0,
	}
	if message.Header.Sender != nil {
		email.FromAddress = message.Header.Sender.Address
		email.FromName = message.Header.Sender.DisplayName
	}
	if body := message.Content.Body; body != nil {
		if body.IsHTML {
			email.BodyHTML = body.Text
		} else {
			email.BodyText = body.Text
		}
	}

	if err := o.emails.Create(ctx, email); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	o.log.Infof("[%s] archived message %s (uid %d)", o.mailboxID, email.MessageID, email.ProtocolUID)
	return nil
}

func addressList(addresses []models.EmailAddress) pq.StringArray {
	if len(addresses) == 0 {
		return nil
	}
	out := make(pq.StringArray, 0, len(addresses))
	for _, a := range addresses {
		out = append(out, a.Address)
	}
	return out
}
