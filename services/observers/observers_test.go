package observers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxkit/mailsync/internal/enum"
	"github.com/inboxkit/mailsync/internal/logger"
	"github.com/inboxkit/mailsync/internal/models"
)

// ---- fakes ----

type fakeEmailRepository struct {
	byMessageID map[string]*models.Email
	created     []*models.Email
}

func newFakeEmailRepository() *fakeEmailRepository {
	return &fakeEmailRepository{byMessageID: make(map[string]*models.Email)}
}

func (f *fakeEmailRepository) Create(ctx context.Context, email *models.Email) error {
	if email.ID == "" {
		email.ID = "email_" + email.MessageID
	}
	f.created = append(f.created, email)
	f.byMessageID[email.MessageID] = email
	return nil
}

func (f *fakeEmailRepository) GetByMessageID(ctx context.Context, messageID string) (*models.Email, error) {
	return f.byMessageID[messageID], nil
}

type fakeAttachmentRepository struct {
	created []*models.EmailAttachment
}

func (f *fakeAttachmentRepository) Create(ctx context.Context, attachment *models.EmailAttachment) error {
	f.created = append(f.created, attachment)
	return nil
}

func (f *fakeAttachmentRepository) ListByEmailID(ctx context.Context, emailID string) ([]*models.EmailAttachment, error) {
	return f.created, nil
}

type fakeStorage struct {
	uploads map[string][]byte
	types   map[string]string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploads: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	f.uploads[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeStorage) Download(ctx context.Context, key string) ([]byte, error) {
	return f.uploads[key], nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	delete(f.uploads, key)
	return nil
}

func (f *fakeStorage) GetPublicURL(key string) string { return "https://cdn.test/" + key }

// ---- helpers ----

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true})
	appLogger.InitLogger()
	return appLogger
}

func syncedMessage() *models.EmailMessage {
	sent := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	return &models.EmailMessage{
		Metadata: models.EmailMetadata{
			GlobalMessageID: "rep-1@example.com",
			Protocol:        enum.ProtocolIMAP,
			ProtocolUID:     42,
			FolderName:      "INBOX",
			IsReply:         true,
		},
		Header: models.EmailHeader{
			Subject: "Re: weekly report",
			Sender:  &models.EmailAddress{DisplayName: "Jane Doe", Address: "jane@example.com"},
			To:      []models.EmailAddress{{Address: "ops@example.com"}},
			SentAt:  &sent,
		},
		Content: models.EmailContent{
			Body: &models.EmailBody{Text: "Report attached."},
			Attachments: []*models.AttachmentMetadata{
				{FileName: "report.csv", MimeType: "text/csv"},
			},
		},
	}
}

// ---- archiver ----

func TestArchiver_VotesForUnseenMessages(t *testing.T) {
	repo := newFakeEmailRepository()
	archiver := NewArchiverObserver("mb-test", repo, getLogger())

	vote, err := archiver.ShouldDownloadBody(context.Background(), syncedMessage())

	require.NoError(t, err)
	assert.True(t, vote)
}

func TestArchiver_SkipsAlreadyArchivedMessages(t *testing.T) {
	repo := newFakeEmailRepository()
	repo.byMessageID["rep-1@example.com"] = &models.Email{MessageID: "rep-1@example.com"}
	archiver := NewArchiverObserver("mb-test", repo, getLogger())

	vote, err := archiver.ShouldDownloadBody(context.Background(), syncedMessage())
	require.NoError(t, err)
	assert.False(t, vote)

	require.NoError(t, archiver.ProcessMessage(context.Background(), syncedMessage()))
	assert.Empty(t, repo.created)
}

func TestArchiver_PersistsMessageRow(t *testing.T) {
	repo := newFakeEmailRepository()
	archiver := NewArchiverObserver("mb-test", repo, getLogger())
	message := syncedMessage()

	err := archiver.ProcessMessage(context.Background(), message)

	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	email := repo.created[0]
	assert.Equal(t, "mb-test", email.MailboxID)
	assert.Equal(t, "imap", email.Protocol)
	assert.Equal(t, uint32(42), email.ProtocolUID)
	assert.Equal(t, "rep-1@example.com", email.MessageID)
	assert.True(t, email.IsReply)
	assert.Equal(t, "jane@example.com", email.FromAddress)
	assert.Equal(t, "Jane Doe", email.FromName)
	assert.Equal(t, []string{"ops@example.com"}, []string(email.ToAddresses))
	assert.Equal(t, "Report attached.", email.BodyText)
	assert.Empty(t, email.BodyHTML)
	assert.True(t, email.HasAttachment)
}

func TestArchiver_StoresHTMLBodySeparately(t *testing.T) {
	repo := newFakeEmailRepository()
	archiver := NewArchiverObserver("mb-test", repo, getLogger())
	message := syncedMessage()
	message.Content.Body = &models.EmailBody{Text: "<p>hi</p>", IsHTML: true}

	require.NoError(t, archiver.ProcessMessage(context.Background(), message))

	require.Len(t, repo.created, 1)
	assert.Empty(t, repo.created[0].BodyText)
	assert.Equal(t, "<p>hi</p>", repo.created[0].BodyHTML)
}

// ---- attachment uploader ----

func newUploader(cfg UploaderConfig) (*AttachmentUploaderObserver, *fakeStorage, *fakeAttachmentRepository) {
	storage := newFakeStorage()
	attachments := &fakeAttachmentRepository{}
	uploader := NewAttachmentUploaderObserver(cfg, storage, newFakeEmailRepository(), attachments, getLogger())
	return uploader, storage, attachments
}

func TestUploader_VoteRespectsMimeAllowlist(t *testing.T) {
	uploader, _, _ := newUploader(UploaderConfig{
		AllowedMimeTypes: []string{"application/pdf", "image/"},
	})
	message := syncedMessage()

	tests := []struct {
		mimeType string
		expected bool
	}{
		{"application/pdf", true},
		{"APPLICATION/PDF", true},
		{"image/png", true},
		{"image/jpeg", true},
		{"text/csv", false},
		{"application/zip", false},
	}

	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			vote, err := uploader.ShouldProcessAttachment(context.Background(), message,
				&models.AttachmentMetadata{FileName: "f", MimeType: tt.mimeType})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, vote)
		})
	}
}

func TestUploader_EmptyAllowlistAdmitsEverything(t *testing.T) {
	uploader, _, _ := newUploader(UploaderConfig{})

	vote, err := uploader.ShouldProcessAttachment(context.Background(), syncedMessage(),
		&models.AttachmentMetadata{FileName: "f", MimeType: "application/zip"})

	require.NoError(t, err)
	assert.True(t, vote)
}

func TestUploader_VoteRejectsOversizedAndDownloaded(t *testing.T) {
	uploader, _, _ := newUploader(UploaderConfig{MaxSizeBytes: 100})
	message := syncedMessage()

	big := int64(200)
	vote, err := uploader.ShouldProcessAttachment(context.Background(), message,
		&models.AttachmentMetadata{FileName: "big.bin", Size: &big})
	require.NoError(t, err)
	assert.False(t, vote)

	vote, err = uploader.ShouldProcessAttachment(context.Background(), message,
		&models.AttachmentMetadata{FileName: "done.bin", DownloadedRef: "attachments/x"})
	require.NoError(t, err)
	assert.False(t, vote)
}

func TestUploader_UploadsAndRecordsAttachment(t *testing.T) {
	uploader, storage, attachments := newUploader(UploaderConfig{
		StorageProvider: "R2",
		StorageBucket:   "attachments",
	})
	message := syncedMessage()
	attachment := message.Content.Attachments[0]
	content := []byte("week,opened\n1,42\n")

	err := uploader.ProcessAttachment(context.Background(), message, attachment, bytes.NewReader(content))

	require.NoError(t, err)
	require.Len(t, attachments.created, 1)
	record := attachments.created[0]

	assert.Equal(t, "rep-1@example.com", record.MessageID)
	assert.Equal(t, "report.csv", record.Filename)
	assert.Equal(t, "text/csv", record.ContentType)
	assert.Equal(t, int64(len(content)), record.Size)
	assert.Equal(t, "R2", record.StorageService)
	assert.Equal(t, "attachments", record.StorageBucket)

	hash := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(hash[:]), record.ContentHash)

	// the stored bytes match and the descriptor points at them
	assert.Equal(t, content, storage.uploads[record.StorageKey])
	assert.Equal(t, record.StorageKey, attachment.DownloadedRef)
}

func TestUploader_SkipsUploadWhenContentExceedsLimit(t *testing.T) {
	uploader, storage, attachments := newUploader(UploaderConfig{MaxSizeBytes: 4})
	message := syncedMessage()

	err := uploader.ProcessAttachment(context.Background(), message,
		message.Content.Attachments[0], bytes.NewReader([]byte("too large")))

	require.NoError(t, err)
	assert.Empty(t, storage.uploads)
	assert.Empty(t, attachments.created)
}

// ---- event publisher ----

type fakePublisher struct {
	published []*models.EmailMessage
}

func (f *fakePublisher) PublishEmailSynced(ctx context.Context, message *models.EmailMessage) error {
	f.published = append(f.published, message)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func TestEventPublisherObserver_PublishesPerMessage(t *testing.T) {
	publisher := &fakePublisher{}
	observer := NewEventPublisherObserver(publisher, getLogger())
	message := syncedMessage()

	vote, err := observer.ShouldDownloadBody(context.Background(), message)
	require.NoError(t, err)
	assert.False(t, vote)

	require.NoError(t, observer.ProcessMessage(context.Background(), message))
	require.Len(t, publisher.published, 1)
	assert.Same(t, message, publisher.published[0])
}
