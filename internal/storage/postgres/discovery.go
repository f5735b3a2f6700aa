package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"content_syncer/internal/domain"
)

// DiscoveryStore serves the published-only read queries behind the cache
// layer. Unpublished records are never visible through it.
type DiscoveryStore struct {
	db *sqlx.DB
}

func NewDiscoveryStore(db *sqlx.DB) *DiscoveryStore {
	return &DiscoveryStore{db: db}
}

func (s *DiscoveryStore) FindPublished(ctx context.Context, page, limit int) ([]domain.Content, int, error) {
	var total int
	err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM content WHERE is_published = TRUE`)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + contentColumns + `
		FROM content
		WHERE is_published = TRUE
		ORDER BY published_at DESC, created_at DESC
		LIMIT $1 OFFSET $2`

	var rows []contentRow
	if err := s.db.SelectContext(ctx, &rows, query, limit, (page-1)*limit); err != nil {
		return nil, 0, err
	}

	return rowsToDomain(rows), total, nil
}

func (s *DiscoveryStore) FindPublishedByID(ctx context.Context, id int64) (*domain.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM content WHERE id = $1 AND is_published = TRUE`

	var row contentRow
	err := s.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return row.toDomain(), nil
}

func (s *DiscoveryStore) SearchPublished(ctx context.Context, query string, page, limit int) ([]domain.Content, int, error) {
	pattern := "%" + escapeLike(query) + "%"

	where := `WHERE is_published = TRUE AND (title ILIKE $1 OR body ILIKE $1)`

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM content `+where, pattern); err != nil {
		return nil, 0, err
	}

	sel := `
		SELECT ` + contentColumns + `
		FROM content ` + where + `
		ORDER BY published_at DESC
		LIMIT $2 OFFSET $3`

	var rows []contentRow
	if err := s.db.SelectContext(ctx, &rows, sel, pattern, limit, (page-1)*limit); err != nil {
		return nil, 0, err
	}

	return rowsToDomain(rows), total, nil
}

func (s *DiscoveryStore) FindLatest(ctx context.Context, n int) ([]domain.Content, error) {
	query := `
		SELECT ` + contentColumns + `
		FROM content
		WHERE is_published = TRUE
		ORDER BY published_at DESC, created_at DESC
		LIMIT $1`

	var rows []contentRow
	if err := s.db.SelectContext(ctx, &rows, query, n); err != nil {
		return nil, err
	}

	return rowsToDomain(rows), nil
}

func rowsToDomain(rows []contentRow) []domain.Content {
	contents := make([]domain.Content, len(rows))
	for i, r := range rows {
		contents[i] = *r.toDomain()
	}
	return contents
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
