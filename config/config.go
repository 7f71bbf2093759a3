package config

import (
	"github.com/inboxkit/mailsync/internal/logger"
	"github.com/inboxkit/mailsync/internal/tracing"
)

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"11011"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	Logger      *logger.Config
	Tracing     *tracing.JaegerConfig
}

type DatabaseConfig struct {
	Host            string `env:"MAILSYNC_POSTGRES_HOST,required"`
	Port            string `env:"MAILSYNC_POSTGRES_PORT,required"`
	User            string `env:"MAILSYNC_POSTGRES_USER,required"`
	DBName          string `env:"MAILSYNC_POSTGRES_DB_NAME,required"`
	Password        string `env:"MAILSYNC_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"MAILSYNC_POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"MAILSYNC_POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"MAILSYNC_POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"MAILSYNC_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"MAILSYNC_POSTGRES_SSL_MODE"`
}

type IMAPConfig struct {
	MailboxID    string `env:"IMAP_MAILBOX_ID" envDefault:"default"`
	Host         string `env:"IMAP_HOST,required"`
	Port         int    `env:"IMAP_PORT" envDefault:"993"`
	Username     string `env:"IMAP_USERNAME"`
	Password     string `env:"IMAP_PASSWORD"`
	TLS          bool   `env:"IMAP_TLS" envDefault:"true"`
	AuthRequired bool   `env:"IMAP_AUTH_REQUIRED" envDefault:"true"`
}

type SyncConfig struct {
	Folder        string `env:"SYNC_FOLDER" envDefault:"INBOX"`
	SubjectFilter string `env:"SYNC_SUBJECT_FILTER"`

	AttachmentAllowedMimeTypes []string `env:"SYNC_ATTACHMENT_ALLOWED_MIME_TYPES" envSeparator:","`
	AttachmentMaxSizeBytes     int64    `env:"SYNC_ATTACHMENT_MAX_SIZE_BYTES" envDefault:"26214400"`
}

type R2StorageConfig struct {
	AccountID             string `env:"CLOUDFLARE_R2_ACCOUNT_ID,required"`
	AccessKeyID           string `env:"CLOUDFLARE_R2_ACCESS_KEY_ID,required"`
	AccessKeySecret       string `env:"CLOUDFLARE_R2_ACCESS_KEY_SECRET,required"`
	EmailAttachmentBucket string `env:"BUCKET_NAME_EMAIL_ATTACHMENT" envDefault:"attachments"`
}
