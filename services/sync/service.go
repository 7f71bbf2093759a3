package sync

import (
	"bytes"
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/inboxkit/mailsync/interfaces"
	mailerrors "github.com/inboxkit/mailsync/internal/errors"
	"github.com/inboxkit/mailsync/internal/logger"
	"github.com/inboxkit/mailsync/internal/models"
	"github.com/inboxkit/mailsync/internal/tracing"
	"github.com/inboxkit/mailsync/internal/utils"
)

// ServiceConfig carries the external sync settings: which folder to track
// and an optional subject substring supplied by configuration.
type ServiceConfig struct {
	MailboxID     string
	Folder        string
	SubjectFilter string
}

// SyncService drives one sync pass at a time: load the cursor, list
// messages above it, consult every observer per message and per attachment,
// download on demand and persist the advanced cursor only after every
// listed message was processed.
type SyncService struct {
	config     ServiceConfig
	client     interfaces.EmailClient
	syncStates interfaces.SyncStateRepository
	log        logger.Logger

	observersMu sync.RWMutex
	observers   []interfaces.SyncObserver

	running  atomic.Bool
	statusMu sync.RWMutex
	status   interfaces.SyncStatus
}

func NewSyncService(
	config ServiceConfig,
	client interfaces.EmailClient,
	syncStates interfaces.SyncStateRepository,
	log logger.Logger,
) *SyncService {
	return &SyncService{
		config:     config,
		client:     client,
		syncStates: syncStates,
		log:        log,
	}
}

func (s *SyncService) RegisterObserver(observer interfaces.SyncObserver) {
	s.observersMu.Lock()
	defer s.observersMu.Unlock()
	s.observers = append(s.observers, observer)
}

func (s *SyncService) observerSnapshot() []interfaces.SyncObserver {
	s.observersMu.RLock()
	defer s.observersMu.RUnlock()
	return append([]interfaces.SyncObserver(nil), s.observers...)
}

func (s *SyncService) Status() interfaces.SyncStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	status := s.status
	status.Running = s.running.Load()
	return status
}

// RunSyncPass executes one pass. It is non-reentrant: a call while another
// pass is in flight fails with ErrSyncInProgress. On any failure the stored
// cursor is left untouched, so the next scheduled pass retries the same
// messages.
func (s *SyncService) RunSyncPass(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return mailerrors.ErrSyncInProgress
	}
	defer s.running.Store(false)

	span, ctx := tracing.StartTracerSpan(ctx, "SyncService.RunSyncPass")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("mailbox.id", s.config.MailboxID)
	span.SetTag("folder.name", s.config.Folder)

	err := s.runPass(ctx)

	s.statusMu.Lock()
	if err != nil {
		s.status.LastPassError = err.Error()
	} else {
		s.status.LastPassError = ""
	}
	s.statusMu.Unlock()

	if err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("[%s] sync pass failed: %v", s.config.MailboxID, err)
	}
	return err
}

func (s *SyncService) runPass(ctx context.Context) error {
	state, err := s.syncStates.GetOrCreateSyncState(ctx, s.config.MailboxID, s.folderName())
	if err != nil {
		return err
	}

	messages, err := s.client.ListMessages(ctx, models.EmailFilterParameters{
		Folder:   s.config.Folder,
		Subject:  s.config.SubjectFilter,
		AfterUID: state.LastUID,
	})
	if err != nil {
		return err
	}

	for _, message := range messages {
		// cooperative cancellation between messages, no partial credit
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "sync pass aborted")
		}
		if err := s.processMessage(ctx, message); err != nil {
			return err
		}
	}

	for _, message := range messages {
		if message.Metadata.ProtocolUID > state.LastUID {
			state.LastUID = message.Metadata.ProtocolUID
		}
	}
	state.LastSyncAt = utils.NowPtr()

	if err := s.syncStates.SaveSyncState(ctx, state); err != nil {
		return err
	}

	s.statusMu.Lock()
	s.status.LastUID = state.LastUID
	s.status.LastSyncAt = state.LastSyncAt
	s.status.MessagesSynced += int64(len(messages))
	s.statusMu.Unlock()

	s.log.Infof("[%s][%s] sync pass complete: %d messages, cursor at %d",
		s.config.MailboxID, s.folderName(), len(messages), state.LastUID)
	return nil
}

func (s *SyncService) folderName() string {
	if s.config.Folder == "" {
		return "INBOX"
	}
	return s.config.Folder
}

// processMessage consults every observer before any download decision is
// final: body votes are OR-combined, then each attachment is voted on and
// downloaded at most once regardless of how many observers want it.
func (s *SyncService) processMessage(ctx context.Context, message *models.EmailMessage) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.processMessage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("uid", message.Metadata.ProtocolUID)
	span.SetTag("message.id", message.Metadata.GlobalMessageID)

	observers := s.observerSnapshot()

	downloadBody := false
	for _, observer := range observers {
		vote, err := s.voteBody(ctx, observer, message)
		if err != nil {
			tracing.TraceErr(span, err)
			s.log.Errorf("[%s] observer %s body vote failed: %v", s.config.MailboxID, observer.Name(), err)
			continue
		}
		if vote {
			downloadBody = true
		}
	}

	if downloadBody {
		if _, err := s.client.FetchBody(ctx, message); err != nil {
			return err
		}
	}

	for _, attachment := range message.Content.Attachments {
		if err := s.processAttachment(ctx, message, attachment, observers); err != nil {
			return err
		}
	}

	for _, observer := range observers {
		processor, ok := observer.(interfaces.MessageProcessor)
		if !ok {
			continue
		}
		if err := s.deliverMessage(ctx, observer.Name(), processor, message); err != nil {
			tracing.TraceErr(span, err)
			s.log.Errorf("[%s] observer %s failed to process message %s: %v",
				s.config.MailboxID, observer.Name(), message.Metadata.GlobalMessageID, err)
		}
	}

	return nil
}

func (s *SyncService) processAttachment(
	ctx context.Context,
	message *models.EmailMessage,
	attachment *models.AttachmentMetadata,
	observers []interfaces.SyncObserver,
) error {
	var interested []interfaces.SyncObserver
	for _, observer := range observers {
		vote, err := s.voteAttachment(ctx, observer, message, attachment)
		if err != nil {
			s.log.Errorf("[%s] observer %s attachment vote failed: %v", s.config.MailboxID, observer.Name(), err)
			continue
		}
		if vote {
			interested = append(interested, observer)
		}
	}

	if len(interested) == 0 {
		return nil
	}

	reader, err := s.client.FetchAttachment(ctx, message, attachment)
	if err != nil {
		// a missing attachment aborts neither the message nor the pass
		if errors.Is(err, mailerrors.ErrAttachmentNotFound) {
			s.log.Warnf("[%s] attachment %q not found on message %s, skipping",
				s.config.MailboxID, attachment.FileName, message.Metadata.GlobalMessageID)
			return nil
		}
		return err
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return errors.Wrap(err, "failed to read attachment content")
	}

	for _, observer := range interested {
		if err := s.deliverAttachment(ctx, observer, message, attachment, bytes.NewReader(content)); err != nil {
			s.log.Errorf("[%s] observer %s failed to process attachment %q: %v",
				s.config.MailboxID, observer.Name(), attachment.FileName, err)
		}
	}

	return nil
}

// voteBody isolates one observer's vote: an error or panic is reported and
// counted as a no-vote.
func (s *SyncService) voteBody(ctx context.Context, observer interfaces.SyncObserver, message *models.EmailMessage) (vote bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			vote = false
			err = errors.Errorf("observer %s panicked: %v", observer.Name(), r)
		}
	}()
	return observer.ShouldDownloadBody(ctx, message)
}

func (s *SyncService) voteAttachment(
	ctx context.Context,
	observer interfaces.SyncObserver,
	message *models.EmailMessage,
	attachment *models.AttachmentMetadata,
) (vote bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			vote = false
			err = errors.Errorf("observer %s panicked: %v", observer.Name(), r)
		}
	}()
	return observer.ShouldProcessAttachment(ctx, message, attachment)
}

func (s *SyncService) deliverAttachment(
	ctx context.Context,
	observer interfaces.SyncObserver,
	message *models.EmailMessage,
	attachment *models.AttachmentMetadata,
	content io.Reader,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("observer %s panicked: %v", observer.Name(), r)
		}
	}()
	return observer.ProcessAttachment(ctx, message, attachment, content)
}

func (s *SyncService) deliverMessage(
	ctx context.Context,
	name string,
	processor interfaces.MessageProcessor,
	message *models.EmailMessage,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("observer %s panicked: %v", name, r)
		}
	}()
	return processor.ProcessMessage(ctx, message)
}
