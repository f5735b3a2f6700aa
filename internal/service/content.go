package service

import (
	"context"
	"fmt"
	"log/slog"

	"content_syncer/internal/domain"
)

// ContentWriter is the single validation and persistence path for canonical
// records. The ingestion reconciler goes through it as well, so a synced
// record is indistinguishable from a manually created one.
type ContentWriter struct {
	store     ContentStore
	tx        TransactionManager
	validator Validator
	publisher EventPublisher
	logger    *slog.Logger
}

func NewContentWriter(
	store ContentStore,
	tx TransactionManager,
	validator Validator,
	publisher EventPublisher,
	logger *slog.Logger,
) *ContentWriter {
	return &ContentWriter{
		store:     store,
		tx:        tx,
		validator: validator,
		publisher: publisher,
		logger:    logger.With("component", "content_writer"),
	}
}

func (w *ContentWriter) Create(ctx context.Context, input domain.ContentInput) (*domain.Content, error) {
	if err := w.validator.ValidateCreate(input); err != nil {
		return nil, fmt.Errorf("validate content: %w", err)
	}

	created, err := w.store.Create(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}

	w.logger.Info("content created", "id", created.ID, "title", created.Title)
	return created, nil
}

// Update reads, validates and writes inside one transaction so the patch is
// validated against the row it actually lands on.
func (w *ContentWriter) Update(ctx context.Context, id int64, patch domain.ContentPatch) (*domain.Content, error) {
	var updated *domain.Content

	err := w.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := w.store.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		if err := w.validator.ValidateUpdate(existing, patch); err != nil {
			return fmt.Errorf("validate update: %w", err)
		}

		updated, err = w.store.Update(txCtx, id, patch)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update content %d: %w", id, err)
	}

	w.logger.Info("content updated", "id", updated.ID, "title", updated.Title)
	return updated, nil
}

func (w *ContentWriter) Delete(ctx context.Context, id int64) error {
	content, err := w.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if !w.validator.CanDelete(content) {
		return fmt.Errorf("cannot delete recently published content %d", id)
	}

	if content.IsPublished {
		w.logger.Warn("deleting published content", "id", id, "title", content.Title)
	}

	if err := w.store.Delete(ctx, id); err != nil {
		return err
	}

	w.publisher.PublishContentDeleted(id)
	w.logger.Info("content deleted", "id", id)
	return nil
}

func (w *ContentWriter) Get(ctx context.Context, id int64) (*domain.Content, error) {
	return w.store.FindByID(ctx, id)
}

func (w *ContentWriter) List(ctx context.Context, page, limit int) ([]domain.Content, int, error) {
	return w.store.List(ctx, page, limit)
}
