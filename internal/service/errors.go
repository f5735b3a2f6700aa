package service

import "errors"

var (
	// ErrSyncInProgress rejects a sync trigger while a pass is running.
	// The trigger is not queued; the caller retries later if it cares.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrChannelNotFound aborts a pass whose channel handle is unresolvable.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrMissingExternalID marks an item that cannot be reconciled because
	// it carries no external identifier.
	ErrMissingExternalID = errors.New("external id is required for synchronization")
)

// IngestionError wraps the cause that aborted a sync pass. The watermark is
// never advanced on this path, so the next attempt resumes from the same
// point.
type IngestionError struct {
	Err error
}

func (e *IngestionError) Error() string {
	return "sync pass failed: " + e.Err.Error()
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}
