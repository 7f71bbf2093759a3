package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/inboxkit/mailsync/interfaces"
	"github.com/inboxkit/mailsync/internal/logger"
	"github.com/inboxkit/mailsync/internal/models"
	"github.com/inboxkit/mailsync/internal/tracing"
	"github.com/inboxkit/mailsync/internal/utils"
)

const (
	ExchangeMailsyncDirect = "mailsync-direct"

	RoutingKeyEmailSynced = "mailsync-email-synced"

	DefaultPublishTimeout = 5 * time.Second
)

// EmailSyncedEvent is the payload published for every synced message whose
// body was downloaded.
type EmailSyncedEvent struct {
	MessageID   string     `json:"messageId"`
	Protocol    string     `json:"protocol"`
	Folder      string     `json:"folder"`
	ProtocolUID uint32     `json:"protocolUid"`
	Subject     string     `json:"subject"`
	FromAddress string     `json:"fromAddress"`
	IsReply     bool       `json:"isReply"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
	SyncedAt    time.Time  `json:"syncedAt"`
}

type RabbitMQPublisher struct {
	connection      *amqp091.Connection
	connectionMutex sync.Mutex
	publishChannel  *amqp091.Channel
	publishMutex    sync.Mutex
	url             string
	log             logger.Logger
}

func NewRabbitMQPublisher(rabbitmqURL string, log logger.Logger) (interfaces.EventPublisher, error) {
	publisher := &RabbitMQPublisher{
		url: rabbitmqURL,
		log: log,
	}

	if err := publisher.connect(); err != nil {
		return nil, err
	}

	return publisher, nil
}

func (r *RabbitMQPublisher) connect() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	conn, err := amqp091.Dial(r.url)
	if err != nil {
		return errors.Wrap(err, "failed to connect to RabbitMQ")
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "failed to open RabbitMQ channel")
	}

	err = channel.ExchangeDeclare(
		ExchangeMailsyncDirect,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return errors.Wrap(err, "failed to declare exchange")
	}

	r.connection = conn
	r.publishChannel = channel
	r.log.Infof("connected to RabbitMQ at %s", r.url)

	return nil
}

func (r *RabbitMQPublisher) ensureChannel() error {
	if r.connection != nil && !r.connection.IsClosed() && r.publishChannel != nil {
		return nil
	}
	return r.connect()
}

// PublishEmailSynced publishes one event per synced message.
func (r *RabbitMQPublisher) PublishEmailSynced(ctx context.Context, message *models.EmailMessage) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RabbitMQPublisher.PublishEmailSynced")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("message.id", message.Metadata.GlobalMessageID)

	event := EmailSyncedEvent{
		MessageID:   message.Metadata.GlobalMessageID,
		Protocol:    message.Metadata.Protocol.String(),
		Folder:      message.Metadata.FolderName,
		ProtocolUID: message.Metadata.ProtocolUID,
		Subject:     message.Header.Subject,
		IsReply:     message.Metadata.IsReply,
		SentAt:      message.Header.SentAt,
		SyncedAt:    utils.Now(),
	}
	if message.Header.Sender != nil {
		event.FromAddress = message.Header.Sender.Address
	}

	payload, err := json.Marshal(event)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to marshal event")
	}

	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	if err := r.ensureChannel(); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, DefaultPublishTimeout)
	defer cancel()

	err = r.publishChannel.PublishWithContext(
		publishCtx,
		ExchangeMailsyncDirect,
		RoutingKeyEmailSynced,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.MessageID,
			Timestamp:    event.SyncedAt,
			Body:         payload,
		},
	)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to publish event")
	}

	return nil
}

func (r *RabbitMQPublisher) Close() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	if r.publishChannel != nil {
		_ = r.publishChannel.Close()
		r.publishChannel = nil
	}
	if r.connection != nil {
		err := r.connection.Close()
		r.connection = nil
		return err
	}
	return nil
}
