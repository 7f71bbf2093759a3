package observers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/inboxkit/mailsync/interfaces"
	"github.com/inboxkit/mailsync/internal/logger"
	"github.com/inboxkit/mailsync/internal/models"
	"github.com/inboxkit/mailsync/internal/tracing"
	"github.com/inboxkit/mailsync/internal/utils"
)

// UploaderConfig bounds which attachments get uploaded. An empty MIME
// allowlist admits every type; MaxSizeBytes of zero means unbounded.
type UploaderConfig struct {
	AllowedMimeTypes []string
	MaxSizeBytes     int64
	StorageProvider  string
	StorageBucket    string
}

// AttachmentUploaderObserver downloads selected attachments and stores them
// in object storage, recording one EmailAttachment row per upload. The
// attachment's DownloadedRef is set to the storage key so later passes skip
// it.
type AttachmentUploaderObserver struct {
	config      UploaderConfig
	storage     interfaces.StorageService
	emails      interfaces.EmailRepository
	attachments interfaces.EmailAttachmentRepository
	log         logger.Logger
}

func NewAttachmentUploaderObserver(
	config UploaderConfig,
	storage interfaces.StorageService,
	emails interfaces.EmailRepository,
	attachments interfaces.EmailAttachmentRepository,
	log logger.Logger,
) *AttachmentUploaderObserver {
	return &AttachmentUploaderObserver{
		config:      config,
		storage:     storage,
		emails:      emails,
		attachments: attachments,
		log:         log,
	}
}

func (o *AttachmentUploaderObserver) Name() string {
	return "attachment-uploader"
}

func (o *AttachmentUploaderObserver) ShouldDownloadBody(ctx context.Context, message *models.EmailMessage) (bool, error) {
	return false, nil
}

func (o *AttachmentUploaderObserver) ShouldProcessAttachment(ctx context.Context, message *models.EmailMessage, attachment *models.AttachmentMetadata) (bool, error) {
	if attachment.DownloadedRef != "" {
		return false, nil
	}
	if !o.mimeTypeAllowed(attachment.MimeType) {
		return false, nil
	}
	// size is advisory at vote time, the server may not report it
	if o.config.MaxSizeBytes > 0 && attachment.Size != nil && *attachment.Size > o.config.MaxSizeBytes {
		return false, nil
	}
	return true, nil
}

func (o *AttachmentUploaderObserver) ProcessAttachment(ctx context.Context, message *models.EmailMessage, attachment *models.AttachmentMetadata, content io.Reader) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "AttachmentUploaderObserver.ProcessAttachment")
	defer span.Finish()
	tracing.TagComponentObserver(span)
	span.SetTag("message.id", message.Metadata.GlobalMessageID)
	span.SetTag("attachment.filename", attachment.FileName)

	data, err := io.ReadAll(content)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to read attachment content")
	}

	if o.config.MaxSizeBytes > 0 && int64(len(data)) > o.config.MaxSizeBytes {
		o.log.Warnf("[%s] attachment %q exceeds size limit (%d > %d), skipping upload",
			message.Metadata.GlobalMessageID, attachment.FileName, len(data), o.config.MaxSizeBytes)
		return nil
	}

	hash := sha256.Sum256(data)
	contentHash := hex.EncodeToString(hash[:])

	key := fmt.Sprintf("attachments/%s/%s_%s",
		utils.NormalizeMessageID(message.Metadata.GlobalMessageID),
		utils.GenerateNanoIDWithPrefix("att", 12),
		attachment.FileName)

	if err := o.storage.Upload(ctx, key, data, attachment.MimeType); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to upload attachment %q", attachment.FileName)
	}

	record := &models.EmailAttachment{
		MessageID:      message.Metadata.GlobalMessageID,
		Filename:       attachment.FileName,
		ContentType:    attachment.MimeType,
		Size:           int64(len(data)),
		StorageService: o.config.StorageProvider,
		StorageBucket:  o.config.StorageBucket,
		StorageKey:     key,
		ContentHash:    contentHash,
	}
	// the archived email row may not exist yet on the first pass, the
	// message id remains the durable join key
	if email, err := o.emails.GetByMessageID(ctx, message.Metadata.GlobalMessageID); err == nil && email != nil {
		record.EmailID = email.ID
	}

	if err := o.attachments.Create(ctx, record); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	attachment.DownloadedRef = key

	o.log.Infof("[%s] uploaded attachment %q (%d bytes) to %s",
		message.Metadata.GlobalMessageID, attachment.FileName, len(data), key)
	return nil
}

func (o *AttachmentUploaderObserver) mimeTypeAllowed(mimeType string) bool {
	if len(o.config.AllowedMimeTypes) == 0 {
		return true
	}
	mimeType = strings.ToLower(mimeType)
	for _, allowed := range o.config.AllowedMimeTypes {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if allowed == mimeType {
			return true
		}
		// prefix match for entries like "image/"
		if strings.HasSuffix(allowed, "/") && strings.HasPrefix(mimeType, allowed) {
			return true
		}
	}
	return false
}
