package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"content_syncer/internal/domain"
)

type ContentStore interface {
	Create(ctx context.Context, input domain.ContentInput) (*domain.Content, error)
	Update(ctx context.Context, id int64, patch domain.ContentPatch) (*domain.Content, error)
	FindByID(ctx context.Context, id int64) (*domain.Content, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.Content, error)
	List(ctx context.Context, page, limit int) ([]domain.Content, int, error)
	Delete(ctx context.Context, id int64) error
}

type WatermarkStore interface {
	Get(ctx context.Context, channelID string) (*domain.SyncWatermark, error)
	Update(ctx context.Context, wm *domain.SyncWatermark) error
}

type DiscoveryStore interface {
	FindPublished(ctx context.Context, page, limit int) ([]domain.Content, int, error)
	FindPublishedByID(ctx context.Context, id int64) (*domain.Content, error)
	SearchPublished(ctx context.Context, query string, page, limit int) ([]domain.Content, int, error)
	FindLatest(ctx context.Context, n int) ([]domain.Content, error)
}

type Provider interface {
	ResolveChannel(ctx context.Context, handle string) (string, error)
	ListVideos(ctx context.Context, channelID string, maxResults int, publishedAfter *time.Time) ([]domain.VideoMetadata, error)
	CheckAccess(ctx context.Context) (bool, error)
	QuotaUsage() domain.QuotaUsage
}

// CacheStore fails open: operations swallow backend errors, a miss is the
// worst observable outcome.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	DeleteByPattern(ctx context.Context, pattern string)
}

// EventPublisher is fire-and-forget: calls never block and never fail.
type EventPublisher interface {
	PublishContentUpdated(contentID int64, action domain.ContentAction)
	PublishContentDeleted(contentID int64)
	PublishBulkInvalidation()
}

type Validator interface {
	ValidateCreate(input domain.ContentInput) error
	ValidateUpdate(existing *domain.Content, patch domain.ContentPatch) error
	CanDelete(content *domain.Content) bool
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
