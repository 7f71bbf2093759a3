package interfaces

import (
	"context"
	"time"
)

// SyncService drives incremental mailbox synchronization.
type SyncService interface {
	// RunSyncPass executes one pass: load cursor, list new messages, run
	// observers, persist the advanced cursor. Non-reentrant; a second call
	// while a pass is in flight fails with ErrSyncInProgress.
	RunSyncPass(ctx context.Context) error

	// RegisterObserver appends an observer. Registration order carries no
	// contractual meaning.
	RegisterObserver(observer SyncObserver)

	Status() SyncStatus
}

// SyncStatus is a snapshot of the orchestrator's progress.
type SyncStatus struct {
	Running        bool       `json:"running"`
	LastUID        uint32     `json:"lastUid"`
	LastSyncAt     *time.Time `json:"lastSyncAt,omitempty"`
	LastPassError  string     `json:"lastPassError,omitempty"`
	MessagesSynced int64      `json:"messagesSynced"`
}
