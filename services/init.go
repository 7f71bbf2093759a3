package services

import (
	"github.com/inboxkit/mailsync/config"
	"github.com/inboxkit/mailsync/interfaces"
	"github.com/inboxkit/mailsync/internal/logger"
	"github.com/inboxkit/mailsync/internal/repository"
	"github.com/inboxkit/mailsync/services/events"
	"github.com/inboxkit/mailsync/services/imap"
	"github.com/inboxkit/mailsync/services/observers"
	"github.com/inboxkit/mailsync/services/storage"
	"github.com/inboxkit/mailsync/services/sync"
)

type Services struct {
	EmailClient    interfaces.EmailClient
	StorageService interfaces.StorageService
	EventPublisher interfaces.EventPublisher
	SyncService    interfaces.SyncService
}

// InitServices wires the email client, the sync orchestrator and the three
// built-in observers. The event publisher is optional and only created when
// a RabbitMQ URL is configured.
func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	emailClient := imap.NewImapEmailClient(imap.ClientConfig{
		MailboxID:    cfg.IMAPConfig.MailboxID,
		Host:         cfg.IMAPConfig.Host,
		Port:         cfg.IMAPConfig.Port,
		Username:     cfg.IMAPConfig.Username,
		Password:     cfg.IMAPConfig.Password,
		TLS:          cfg.IMAPConfig.TLS,
		AuthRequired: cfg.IMAPConfig.AuthRequired,
	}, log)

	storageService := storage.NewR2StorageService(
		cfg.R2StorageConfig.AccountID,
		cfg.R2StorageConfig.AccessKeyID,
		cfg.R2StorageConfig.AccessKeySecret,
		cfg.R2StorageConfig.EmailAttachmentBucket,
		false,
	)

	syncService := sync.NewSyncService(sync.ServiceConfig{
		MailboxID:     cfg.IMAPConfig.MailboxID,
		Folder:        cfg.SyncConfig.Folder,
		SubjectFilter: cfg.SyncConfig.SubjectFilter,
	}, emailClient, repos.SyncStateRepository, log)

	syncService.RegisterObserver(observers.NewArchiverObserver(
		cfg.IMAPConfig.MailboxID, repos.EmailRepository, log))

	syncService.RegisterObserver(observers.NewAttachmentUploaderObserver(
		observers.UploaderConfig{
			AllowedMimeTypes: cfg.SyncConfig.AttachmentAllowedMimeTypes,
			MaxSizeBytes:     cfg.SyncConfig.AttachmentMaxSizeBytes,
			StorageProvider:  "R2",
			StorageBucket:    cfg.R2StorageConfig.EmailAttachmentBucket,
		},
		storageService, repos.EmailRepository, repos.EmailAttachmentRepository, log))

	svcs := &Services{
		EmailClient:    emailClient,
		StorageService: storageService,
		SyncService:    syncService,
	}

	if cfg.AppConfig.RabbitMQURL != "" {
		publisher, err := events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log)
		if err != nil {
			return nil, err
		}
		svcs.EventPublisher = publisher
		syncService.RegisterObserver(observers.NewEventPublisherObserver(publisher, log))
	}

	return svcs, nil
}
