package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"content_syncer/internal/domain"
	"content_syncer/internal/service"
)

// Syncer is the sync trigger surface the scheduler drives.
type Syncer interface {
	RunSyncPass(ctx context.Context) (*domain.SyncResult, error)
}

// Scheduler fires periodic sync passes. Manual triggers share the engine's
// single-flight guard, so a tick landing during a manual pass is skipped.
type Scheduler struct {
	syncer      Syncer
	interval    time.Duration
	passTimeout time.Duration
	logger      *slog.Logger
}

func NewScheduler(syncer Syncer, interval, passTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		syncer:      syncer,
		interval:    interval,
		passTimeout: passTimeout,
		logger:      logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runPass(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, s.passTimeout)
	defer cancel()

	_, err := s.syncer.RunSyncPass(passCtx)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrSyncInProgress):
		s.logger.Warn("sync already running, skipping scheduled pass")
	default:
		s.logger.Error("scheduled sync pass failed", "error", err)
	}
}
