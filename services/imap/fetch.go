package imap

import (
	"bytes"
	"context"
	"io"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/inboxkit/mailsync/internal/enum"
	mailerrors "github.com/inboxkit/mailsync/internal/errors"
	"github.com/inboxkit/mailsync/internal/models"
	"github.com/inboxkit/mailsync/internal/tracing"
)

// FetchBody downloads (or reuses from the session cache) the full raw
// message, decodes the body and stores it on the message. Calling it twice
// for the same message in one session issues a single raw download.
func (c *ImapEmailClient) FetchBody(ctx context.Context, message *models.EmailMessage) (*models.EmailBody, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ImapEmailClient.FetchBody")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("mailbox.id", c.config.MailboxID)
	span.SetTag("uid", message.Metadata.ProtocolUID)

	if err := c.checkProtocol(message); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if message.Content.Body != nil {
		return message.Content.Body, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	env, err := c.rawMessage(ctx, message)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	// enmime down-converts HTML-only messages into Text, so the presence
	// of a native text part decides which rendition we keep
	body := &models.EmailBody{}
	switch {
	case hasPlainTextPart(env):
		body.Text = env.Text
	case env.HTML != "":
		body.Text = env.HTML
		body.IsHTML = true
	default:
		body.Text = env.Text
	}

	message.Content.Body = body
	return body, nil
}

func hasPlainTextPart(env *enmime.Envelope) bool {
	if env.Root == nil {
		return false
	}
	part := env.Root.DepthMatchFirst(func(p *enmime.Part) bool {
		return p.ContentType == "text/plain" && p.Disposition != "attachment"
	})
	return part != nil
}

// FetchAttachment returns an in-memory reader over the decoded bytes of one
// attachment, positioned at its start. Persisting the bytes is the caller's
// concern. The known size on the descriptor is corrected to the decoded
// length once the bytes are available.
func (c *ImapEmailClient) FetchAttachment(ctx context.Context, message *models.EmailMessage, attachment *models.AttachmentMetadata) (io.Reader, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ImapEmailClient.FetchAttachment")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("mailbox.id", c.config.MailboxID)
	span.SetTag("uid", message.Metadata.ProtocolUID)
	span.SetTag("attachment.filename", attachment.FileName)

	if err := c.checkProtocol(message); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	env, err := c.rawMessage(ctx, message)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	part := findAttachmentPart(env, attachment.FileName)
	if part == nil {
		err := errors.Wrapf(mailerrors.ErrAttachmentNotFound, "no attachment named %q on message %s", attachment.FileName, message.Metadata.GlobalMessageID)
		tracing.TraceErr(span, err)
		return nil, err
	}

	size := int64(len(part.Content))
	attachment.Size = &size

	return bytes.NewReader(part.Content), nil
}

// checkProtocol rejects messages listed by a different protocol client
// before any network round-trip is attempted.
func (c *ImapEmailClient) checkProtocol(message *models.EmailMessage) error {
	if message.Metadata.Protocol != enum.ProtocolIMAP {
		return errors.Wrapf(mailerrors.ErrProtocolMismatch, "message has protocol %q, client handles %q",
			message.Metadata.Protocol, enum.ProtocolIMAP)
	}
	return nil
}

// rawMessage returns the parsed full message from the session cache,
// downloading it once per session. Callers must hold c.mu.
func (c *ImapEmailClient) rawMessage(ctx context.Context, message *models.EmailMessage) (*enmime.Envelope, error) {
	uid := message.Metadata.ProtocolUID

	if env, ok := c.cache[uid]; ok {
		return env, nil
	}

	raw, err := c.fetchRawFn(ctx, message.Metadata.FolderName, uid)
	if err != nil {
		return nil, err
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(mailerrors.ErrProtocol, "failed to parse raw message %d: %v", uid, err)
	}

	c.cache[uid] = env
	return env, nil
}

// fetchRawFromServer downloads the complete RFC822 source of one message.
func (c *ImapEmailClient) fetchRawFromServer(ctx context.Context, folder string, uid uint32) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ImapEmailClient.fetchRawFromServer")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("uid", uid)

	conn, err := c.getConnectedClient(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if err := c.selectFolder(conn, folder); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	conn.Timeout = fetchTimeout
	defer func() { conn.Timeout = 0 }()

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- conn.UidFetch(seqSet, items, messages)
	}()

	var raw []byte
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err = io.ReadAll(body)
		if err != nil {
			<-done
			tracing.TraceErr(span, err)
			return nil, errors.Wrapf(mailerrors.ErrProtocol, "failed to read message %d: %v", uid, err)
		}
	}

	if err := <-done; err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(mailerrors.ErrProtocol, "failed to fetch message %d: %v", uid, err)
	}

	if raw == nil {
		return nil, errors.Wrapf(mailerrors.ErrProtocol, "server returned no content for message %d", uid)
	}

	return raw, nil
}

// findAttachmentPart locates an attachment by filename across the parsed
// message's attachment, inline and other parts.
func findAttachmentPart(env *enmime.Envelope, filename string) *enmime.Part {
	for _, parts := range [][]*enmime.Part{env.Attachments, env.Inlines, env.OtherParts} {
		for _, part := range parts {
			if part.FileName == filename {
				return part
			}
		}
	}
	return nil
}
