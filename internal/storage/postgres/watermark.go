package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"content_syncer/internal/domain"
)

type WatermarkStore struct {
	db *sqlx.DB
}

func NewWatermarkStore(db *sqlx.DB) *WatermarkStore {
	return &WatermarkStore{db: db}
}

func (s *WatermarkStore) Get(ctx context.Context, channelID string) (*domain.SyncWatermark, error) {
	var wm domain.SyncWatermark
	query := `
		SELECT id, channel_id, last_synced_at, total_synced
		FROM sync_watermarks
		WHERE channel_id = $1`

	err := s.db.GetContext(ctx, &wm, query, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		// Channels seen for the first time start from the zero watermark.
		return &domain.SyncWatermark{
			ChannelID:    channelID,
			LastSyncedAt: time.Time{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &wm, nil
}

func (s *WatermarkStore) Update(ctx context.Context, wm *domain.SyncWatermark) error {
	query := `
		INSERT INTO sync_watermarks (channel_id, last_synced_at, total_synced)
		VALUES ($1, $2, $3)
		ON CONFLICT (channel_id) DO UPDATE SET
			last_synced_at = EXCLUDED.last_synced_at,
			total_synced = EXCLUDED.total_synced`

	_, err := s.db.ExecContext(ctx, query,
		wm.ChannelID,
		wm.LastSyncedAt,
		wm.TotalSynced,
	)
	return err
}
