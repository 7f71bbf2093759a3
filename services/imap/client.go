package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/jhillyerd/enmime"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	mailerrors "github.com/inboxkit/mailsync/internal/errors"
	"github.com/inboxkit/mailsync/internal/logger"
	"github.com/inboxkit/mailsync/internal/tracing"
	"github.com/inboxkit/mailsync/internal/utils"
)

const (
	defaultFolder = "INBOX"

	dialTimeout   = 30 * time.Second
	loginTimeout  = 30 * time.Second
	fetchTimeout  = 60 * time.Second
	logoutTimeout = 5 * time.Second
)

// ClientConfig carries the connection settings for one mailbox.
type ClientConfig struct {
	MailboxID string
	Host      string
	Port      int
	Username  string
	Password  string
	TLS       bool
	// AuthRequired is false for anonymous/test servers; login is skipped.
	AuthRequired bool
}

// ImapEmailClient implements interfaces.EmailClient against an IMAP server.
//
// The client owns a single stateful session, established lazily on first
// use and health-checked with NOOP before reuse. Raw messages fetched
// within one session are cached by UID so a body fetch followed by
// attachment fetches issues a single full download; the cache is cleared
// whenever a new listing starts.
type ImapEmailClient struct {
	config ClientConfig
	log    logger.Logger

	mu             sync.Mutex
	client         *client.Client
	selectedFolder string
	cache          map[uint32]*enmime.Envelope

	// fetchRawFn downloads one full raw message; replaced in tests.
	fetchRawFn func(ctx context.Context, folder string, uid uint32) ([]byte, error)
}

func NewImapEmailClient(config ClientConfig, log logger.Logger) *ImapEmailClient {
	c := &ImapEmailClient{
		config: config,
		log:    log,
		cache:  make(map[uint32]*enmime.Envelope),
	}
	c.fetchRawFn = c.fetchRawFromServer
	return c
}

// isLoopback reports whether the configured host is a local/dev server.
func (c *ImapEmailClient) isLoopback() bool {
	return utils.IsLoopbackHost(c.config.Host)
}

// getConnectedClient returns the cached session when it is still healthy,
// otherwise establishes a new one.
func (c *ImapEmailClient) getConnectedClient(ctx context.Context) (*client.Client, error) {
	if c.client != nil {
		if err := c.client.Noop(); err == nil {
			return c.client, nil
		}
		c.log.Warnf("[%s] existing IMAP connection is broken, reconnecting", c.config.MailboxID)
		c.client = nil
		c.selectedFolder = ""
	}

	return c.connect(ctx)
}

// connect dials the server, checks capabilities and authenticates.
func (c *ImapEmailClient) connect(ctx context.Context) (*client.Client, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "ImapEmailClient.connect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("mailbox.id", c.config.MailboxID)
	span.SetTag("server", c.config.Host)
	span.SetTag("port", c.config.Port)
	span.SetTag("tls", c.config.TLS)

	serverAddr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)

	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: dialTimeout,
	}

	var conn *client.Client
	var err error

	if c.config.TLS {
		tlsConfig := &tls.Config{
			ServerName: c.config.Host,
		}
		conn, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	} else {
		conn, err = client.DialWithDialer(dialer, serverAddr)
	}

	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(mailerrors.ErrConnection, "failed to connect to %s: %v", serverAddr, err)
	}

	conn.Timeout = loginTimeout

	caps, err := conn.Capability()
	if err != nil {
		_ = conn.Logout()
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(mailerrors.ErrConnection, "failed to get capabilities: %v", err)
	}
	span.SetTag("server.capabilities", fmt.Sprintf("%v", caps))

	if c.config.AuthRequired {
		if err := conn.Login(c.config.Username, c.config.Password); err != nil {
			_ = conn.Logout()
			tracing.TraceErr(span, err)
			return nil, errors.Wrapf(mailerrors.ErrConnection, "failed to login as %s: %v", c.config.Username, err)
		}
	}

	conn.Timeout = 0

	c.log.Infof("[%s] connected to %s", c.config.MailboxID, serverAddr)
	c.client = conn
	c.selectedFolder = ""

	return conn, nil
}

// selectFolder opens a folder read-only, skipping the round-trip when it is
// already selected on this session.
func (c *ImapEmailClient) selectFolder(conn *client.Client, folder string) error {
	if folder == "" {
		folder = defaultFolder
	}
	if c.selectedFolder == folder {
		return nil
	}

	if _, err := conn.Select(folder, true); err != nil {
		return errors.Wrapf(mailerrors.ErrProtocol, "failed to select folder %s: %v", folder, err)
	}

	c.selectedFolder = folder
	return nil
}

// Close gracefully logs out and releases the session. The logout is given
// a bounded amount of time so shutdown never hangs on a dead server.
func (c *ImapEmailClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}

	conn := c.client
	c.client = nil
	c.selectedFolder = ""
	c.cache = make(map[uint32]*enmime.Envelope)

	conn.Timeout = logoutTimeout

	done := make(chan error, 1)
	go func() {
		done <- conn.Logout()
		close(done)
	}()

	select {
	case err := <-done:
		if err != nil {
			c.log.Warnf("[%s] error during logout: %v", c.config.MailboxID, err)
			return err
		}
	case <-time.After(logoutTimeout):
		c.log.Warnf("[%s] logout timed out", c.config.MailboxID)
	}

	return nil
}
