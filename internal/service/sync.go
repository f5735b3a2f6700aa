package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"content_syncer/internal/config"
	"content_syncer/internal/domain"
)

// IngestionEngine orchestrates one sync pass: fetch items published after the
// channel watermark, reconcile each against the canonical store, advance the
// watermark, and notify the read side. At most one pass runs per process at a
// time; concurrent triggers are rejected, not queued. The guard is
// process-local — multiple engine instances are not mutually coordinated.
type IngestionEngine struct {
	provider   Provider
	reconciler *Reconciler
	watermarks WatermarkStore
	publisher  EventPublisher
	cfg        config.SyncConfig
	handle     string
	enabled    bool
	logger     *slog.Logger
	now        func() time.Time

	mu         sync.Mutex
	running    bool
	lastResult *domain.SyncResult
}

func NewIngestionEngine(
	provider Provider,
	reconciler *Reconciler,
	watermarks WatermarkStore,
	publisher EventPublisher,
	cfg config.SyncConfig,
	channelHandle string,
	enabled bool,
	logger *slog.Logger,
) *IngestionEngine {
	return &IngestionEngine{
		provider:   provider,
		reconciler: reconciler,
		watermarks: watermarks,
		publisher:  publisher,
		cfg:        cfg,
		handle:     channelHandle,
		enabled:    enabled,
		logger:     logger.With("channel", channelHandle),
		now:        time.Now,
	}
}

// RunSyncPass executes one full pass. Per-item failures are recorded and do
// not abort the pass; provider failures abort it with the watermark left
// untouched, so a retry resumes from the same point. Writes already committed
// before an abort stay — they reconcile to a clean skip on the next pass.
func (e *IngestionEngine) RunSyncPass(ctx context.Context) (*domain.SyncResult, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	start := e.now()
	e.logger.Info("starting sync pass", "max_items", e.cfg.MaxItemsPerPass)

	channelID, err := e.provider.ResolveChannel(ctx, e.handle)
	if err != nil {
		return nil, &IngestionError{Err: fmt.Errorf("resolve channel: %w", err)}
	}
	if channelID == "" {
		return nil, &IngestionError{Err: fmt.Errorf("%w: %s", ErrChannelNotFound, e.handle)}
	}

	wm, err := e.watermarks.Get(ctx, channelID)
	if err != nil {
		return nil, &IngestionError{Err: fmt.Errorf("read watermark: %w", err)}
	}

	var publishedAfter *time.Time
	if !wm.LastSyncedAt.IsZero() {
		after := wm.LastSyncedAt
		publishedAfter = &after
	}

	videos, err := e.provider.ListVideos(ctx, channelID, e.cfg.MaxItemsPerPass, publishedAfter)
	if err != nil {
		return nil, &IngestionError{Err: fmt.Errorf("list videos: %w", err)}
	}

	e.warnOnQuota()
	e.logger.Info("fetched items from provider", "count", len(videos))

	result := &domain.SyncResult{Errors: []string{}}
	var createdIDs []int64

	for _, video := range videos {
		// A cancelled pass is an incomplete pass: stop before the next
		// item and leave the watermark where it was.
		if err := ctx.Err(); err != nil {
			return nil, &IngestionError{Err: err}
		}

		result.Processed++

		outcome, err := e.reconciler.Reconcile(ctx, video)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", video.Title, err))
			e.logger.Warn("failed to reconcile item",
				"external_id", video.ID,
				"error", err,
			)
			continue
		}

		switch outcome.Action {
		case domain.SyncActionCreate:
			result.Created++
			createdIDs = append(createdIDs, outcome.Content.ID)
		case domain.SyncActionUpdate:
			result.Updated++
		case domain.SyncActionSkip:
			result.Skipped++
		}
	}

	// Advance to "now" rather than the newest item timestamp: clock skew on
	// the provider side must not cause items to be skipped forever.
	wm.LastSyncedAt = e.now()
	wm.TotalSynced += int64(result.Created + result.Updated)
	if err := e.watermarks.Update(ctx, wm); err != nil {
		return result, &IngestionError{Err: fmt.Errorf("advance watermark: %w", err)}
	}

	// Created-item events are batched here rather than fired per item to
	// bound event volume on large passes.
	for _, id := range createdIDs {
		e.publisher.PublishContentUpdated(id, domain.ActionCreated)
	}
	if result.Created+result.Updated > 0 {
		e.publisher.PublishBulkInvalidation()
	}

	result.Success = result.Failed == 0
	result.Duration = e.now().Sub(start)

	e.mu.Lock()
	e.lastResult = result
	e.mu.Unlock()

	e.logger.Info("sync pass completed",
		"processed", result.Processed,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration", result.Duration,
	)

	return result, nil
}

// LastResult returns the most recent completed pass, nil before the first.
func (e *IngestionEngine) LastResult() *domain.SyncResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastResult
}

func (e *IngestionEngine) Status() domain.SyncStatus {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()

	return domain.SyncStatus{
		Enabled:       e.enabled,
		Running:       running,
		ChannelHandle: e.handle,
		NextRun:       e.now().Add(e.cfg.Interval),
	}
}

// ProviderHealth checks provider access and reports quota consumption.
func (e *IngestionEngine) ProviderHealth(ctx context.Context) (bool, domain.QuotaUsage) {
	usage := e.provider.QuotaUsage()

	ok, err := e.provider.CheckAccess(ctx)
	if err != nil {
		e.logger.Error("provider access check failed", "error", err)
		return false, usage
	}
	return ok, usage
}

func (e *IngestionEngine) warnOnQuota() {
	usage := e.provider.QuotaUsage()
	if usage.Limit > 0 && usage.Used*10 > usage.Limit*9 {
		e.logger.Warn("provider quota nearing daily budget",
			"used", usage.Used,
			"limit", usage.Limit,
		)
	}
}
