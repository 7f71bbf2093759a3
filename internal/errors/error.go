package errors

import "github.com/pkg/errors"

var (
	// protocol client errors
	ErrConnection         = errors.New("connection to mail server failed")
	ErrProtocol           = errors.New("mail server rejected the request")
	ErrProtocolMismatch   = errors.New("message does not belong to this protocol client")
	ErrAttachmentNotFound = errors.New("attachment not found on message")

	// sync errors
	ErrSyncInProgress = errors.New("sync pass already in progress")
)
