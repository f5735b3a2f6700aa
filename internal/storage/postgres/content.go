package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"content_syncer/internal/domain"
)

type ContentStore struct {
	db *sqlx.DB
}

func NewContentStore(db *sqlx.DB) *ContentStore {
	return &ContentStore{db: db}
}

type contentRow struct {
	ID              int64      `db:"id"`
	Title           string     `db:"title"`
	Body            string     `db:"body"`
	ThumbnailURL    *string    `db:"thumbnail_url"`
	VideoURL        *string    `db:"video_url"`
	ExternalID      *string    `db:"external_id"`
	ExternalChannel *string    `db:"external_channel"`
	IsPublished     bool       `db:"is_published"`
	PublishedAt     *time.Time `db:"published_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (r contentRow) toDomain() *domain.Content {
	return &domain.Content{
		ID:              r.ID,
		Title:           r.Title,
		Body:            r.Body,
		ThumbnailURL:    r.ThumbnailURL,
		VideoURL:        r.VideoURL,
		ExternalID:      r.ExternalID,
		ExternalChannel: r.ExternalChannel,
		IsPublished:     r.IsPublished,
		PublishedAt:     r.PublishedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

const contentColumns = `id, title, body, thumbnail_url, video_url, external_id,
	external_channel, is_published, published_at, created_at, updated_at`

func (s *ContentStore) Create(ctx context.Context, input domain.ContentInput) (*domain.Content, error) {
	query := `
		INSERT INTO content (
			title, body, thumbnail_url, video_url, external_id,
			external_channel, is_published, published_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + contentColumns

	var row contentRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query,
		input.Title,
		input.Body,
		input.ThumbnailURL,
		input.VideoURL,
		input.ExternalID,
		input.ExternalChannel,
		input.IsPublished,
		input.PublishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert content: %w", err)
	}

	return row.toDomain(), nil
}

func (s *ContentStore) Update(ctx context.Context, id int64, patch domain.ContentPatch) (*domain.Content, error) {
	query := `
		UPDATE content SET
			title = COALESCE($2, title),
			body = COALESCE($3, body),
			thumbnail_url = COALESCE($4, thumbnail_url),
			video_url = COALESCE($5, video_url),
			external_channel = COALESCE($6, external_channel),
			is_published = COALESCE($7, is_published),
			published_at = COALESCE($8, published_at),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + contentColumns

	var row contentRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query,
		id,
		patch.Title,
		patch.Body,
		patch.ThumbnailURL,
		patch.VideoURL,
		patch.ExternalChannel,
		patch.IsPublished,
		patch.PublishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update content %d: %w", id, err)
	}

	return row.toDomain(), nil
}

func (s *ContentStore) FindByID(ctx context.Context, id int64) (*domain.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM content WHERE id = $1`

	var row contentRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return row.toDomain(), nil
}

// FindByExternalID returns (nil, nil) when no record carries the id.
func (s *ContentStore) FindByExternalID(ctx context.Context, externalID string) (*domain.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM content WHERE external_id = $1`

	var row contentRow
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &row, query, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return row.toDomain(), nil
}

func (s *ContentStore) List(ctx context.Context, page, limit int) ([]domain.Content, int, error) {
	var total int
	if err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &total, `SELECT COUNT(*) FROM content`); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + contentColumns + `
		FROM content
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	var rows []contentRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, limit, (page-1)*limit); err != nil {
		return nil, 0, err
	}

	contents := make([]domain.Content, len(rows))
	for i, r := range rows {
		contents[i] = *r.toDomain()
	}

	return contents, total, nil
}

func (s *ContentStore) Delete(ctx context.Context, id int64) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, `DELETE FROM content WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete content %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}
