package enum

// Protocol tags the mail protocol a message was fetched with.
type Protocol string

const (
	ProtocolIMAP     Protocol = "imap"
	ProtocolJMAP     Protocol = "jmap"
	ProtocolGmailAPI Protocol = "gmail_api"
)

func (p Protocol) String() string {
	return string(p)
}
