package domain

import "time"

// SyncWatermark marks the point up to which a channel's items have already
// been considered. It is advanced only after a pass completes, so a failed
// pass is retried from the same point.
type SyncWatermark struct {
	ID           int64     `db:"id"`
	ChannelID    string    `db:"channel_id"`
	LastSyncedAt time.Time `db:"last_synced_at"`
	TotalSynced  int64     `db:"total_synced"`
}

// SyncResult accumulates the outcome of one ingestion pass. Errors are
// per-item and do not abort the pass; Success is false when any item failed.
type SyncResult struct {
	Success   bool          `json:"success"`
	Processed int           `json:"processed"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Errors    []string      `json:"errors"`
	Duration  time.Duration `json:"duration"`
}

// SyncStatus describes the engine for inspection by the API layer.
type SyncStatus struct {
	Enabled       bool      `json:"enabled"`
	Running       bool      `json:"running"`
	ChannelHandle string    `json:"channelHandle"`
	NextRun       time.Time `json:"nextRun"`
}

// SyncAction is the decision the reconciler makes for one external item.
type SyncAction string

const (
	SyncActionCreate SyncAction = "create"
	SyncActionUpdate SyncAction = "update"
	SyncActionSkip   SyncAction = "skip"
)

// ContentAction labels a content-change event for downstream consumers.
type ContentAction string

const (
	ActionCreated     ContentAction = "created"
	ActionUpdated     ContentAction = "updated"
	ActionPublished   ContentAction = "published"
	ActionUnpublished ContentAction = "unpublished"
)

// QuotaUsage reports consumed provider quota against the daily budget.
type QuotaUsage struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}
