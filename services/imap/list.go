package imap

import (
	"context"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/inboxkit/mailsync/internal/enum"
	mailerrors "github.com/inboxkit/mailsync/internal/errors"
	"github.com/inboxkit/mailsync/internal/models"
	"github.com/inboxkit/mailsync/internal/tracing"
	"github.com/inboxkit/mailsync/internal/utils"
)

// ListMessages searches the folder for messages matching the filter and
// returns them with headers and attachment descriptors populated. Bodies
// and attachment bytes are not fetched. Starting a new listing clears the
// session message cache, marking the beginning of a pass.
func (c *ImapEmailClient) ListMessages(ctx context.Context, filter models.EmailFilterParameters) ([]*models.EmailMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ImapEmailClient.ListMessages")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("mailbox.id", c.config.MailboxID)
	span.SetTag("folder.name", filter.Folder)
	span.SetTag("after.uid", filter.AfterUID)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[uint32]*enmime.Envelope)

	conn, err := c.getConnectedClient(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	folder := filter.Folder
	if folder == "" {
		folder = defaultFolder
	}
	if err := c.selectFolder(conn, folder); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	loopback := c.isLoopback()
	span.SetTag("loopback", loopback)

	criteria := buildSearchCriteria(filter, loopback)

	uids, err := conn.UidSearch(criteria)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(mailerrors.ErrProtocol, "search failed in folder %s: %v", folder, err)
	}

	if loopback {
		uids = filterUIDsAfter(uids, filter.AfterUID)
	}

	span.SetTag("uids.matched", len(uids))
	if len(uids) == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	items := []imap.FetchItem{
		imap.FetchUid,
		imap.FetchEnvelope,
		imap.FetchBodyStructure,
	}

	conn.Timeout = fetchTimeout
	defer func() { conn.Timeout = 0 }()

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- conn.UidFetch(seqSet, items, messages)
	}()

	var result []*models.EmailMessage
	for msg := range messages {
		result = append(result, newEmailMessage(folder, msg))
	}

	if err := <-done; err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(mailerrors.ErrProtocol, "fetch failed in folder %s: %v", folder, err)
	}

	c.log.Infof("[%s][%s] listed %d messages", c.config.MailboxID, folder, len(result))
	return result, nil
}

// newEmailMessage maps one fetched IMAP message to the protocol-agnostic
// model. The header is fully populated, the body stays unset and attachment
// descriptors are derived from the body structure without downloading bytes.
func newEmailMessage(folder string, msg *imap.Message) *models.EmailMessage {
	email := &models.EmailMessage{
		Metadata: models.EmailMetadata{
			Protocol:    enum.ProtocolIMAP,
			ProtocolUID: msg.Uid,
			FolderName:  folder,
		},
	}

	if env := msg.Envelope; env != nil {
		email.Metadata.GlobalMessageID = utils.NormalizeMessageID(env.MessageId)
		email.Metadata.IsReply = env.InReplyTo != ""

		email.Header.Subject = env.Subject
		if len(env.From) > 0 {
			sender := toEmailAddress(env.From[0])
			email.Header.Sender = &sender
		}
		email.Header.To = toEmailAddresses(env.To)
		email.Header.Cc = toEmailAddresses(env.Cc)
		email.Header.Bcc = toEmailAddresses(env.Bcc)

		if !env.Date.IsZero() {
			sentAt := env.Date.UTC()
			email.Header.SentAt = &sentAt
		}
	}

	email.Content.Attachments = collectAttachments(msg.BodyStructure)

	return email
}

func toEmailAddress(addr *imap.Address) models.EmailAddress {
	return models.EmailAddress{
		DisplayName: addr.PersonalName,
		Address:     addr.Address(),
	}
}

func toEmailAddresses(addrs []*imap.Address) []models.EmailAddress {
	if len(addrs) == 0 {
		return nil
	}

	result := make([]models.EmailAddress, 0, len(addrs))
	for _, addr := range addrs {
		result = append(result, toEmailAddress(addr))
	}
	return result
}

// collectAttachments walks the body structure and returns a descriptor for
// every attachment part, in the order the parts appear in the message.
// Attached message/rfc822 parts are kept whole as a single descriptor.
func collectAttachments(bs *imap.BodyStructure) []*models.AttachmentMetadata {
	var attachments []*models.AttachmentMetadata
	walkBodyStructure(bs, &attachments)
	return attachments
}

func walkBodyStructure(bs *imap.BodyStructure, out *[]*models.AttachmentMetadata) {
	if bs == nil {
		return
	}

	if len(bs.Parts) > 0 {
		for _, part := range bs.Parts {
			walkBodyStructure(part, out)
		}
		return
	}

	if !isAttachmentPart(bs) {
		return
	}

	attachment := &models.AttachmentMetadata{
		FileName: partFilename(bs),
		MimeType: strings.ToLower(bs.MIMEType + "/" + bs.MIMESubType),
	}
	if bs.Size > 0 {
		attachment.Size = utils.Ptr(int64(bs.Size))
	}

	*out = append(*out, attachment)
}

func isAttachmentPart(bs *imap.BodyStructure) bool {
	if strings.EqualFold(bs.Disposition, "attachment") {
		return true
	}
	// message/rfc822 parts are attachments even without a disposition
	if strings.EqualFold(bs.MIMEType, "message") && strings.EqualFold(bs.MIMESubType, "rfc822") {
		return true
	}
	// inline parts carrying a filename are treated as attachments as well
	return partFilename(bs) != "" && !strings.EqualFold(bs.MIMEType, "text")
}

func partFilename(bs *imap.BodyStructure) string {
	if name, ok := bs.DispositionParams["filename"]; ok {
		return name
	}
	if name, ok := bs.Params["name"]; ok {
		return name
	}
	return ""
}
