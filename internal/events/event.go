// Package events carries content-change notifications between the write side
// and the read side. Delivery is best-effort: a lost event only extends
// staleness up to the cache TTL, it never affects correctness.
package events

import (
	"time"

	"content_syncer/internal/domain"
)

type Kind string

const (
	KindContentUpdated     Kind = "content-updated"
	KindContentDeleted     Kind = "content-deleted"
	KindContentBulkUpdated Kind = "content-bulk-updated"
)

// Event is the wire schema. It exists only in flight and is never persisted.
type Event struct {
	Kind      Kind                 `json:"kind"`
	ContentID int64                `json:"contentId,omitempty"`
	Action    domain.ContentAction `json:"action,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}
