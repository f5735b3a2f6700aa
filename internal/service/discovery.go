package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"content_syncer/internal/cache"
	"content_syncer/internal/config"
	"content_syncer/internal/domain"
)

// Cache key operation names. Collection invalidation is pattern-based over
// these prefixes.
const (
	opContentList   = "content_list"
	opContentItem   = "content_item"
	opContentSearch = "content_search"
	opContentLatest = "content_latest"
)

const (
	minSearchQueryLength = 2
	maxSearchQueryLength = 100
	maxLatestCount       = 50
)

// DiscoveryService serves published content through cache-aside reads. The
// cache is advisory: a miss or a failed write only costs a store round trip,
// and two concurrent misses computing the same key is an accepted race —
// both results are equivalent and the last write wins.
type DiscoveryService struct {
	store  DiscoveryStore
	cache  CacheStore
	cfg    config.DiscoveryConfig
	logger *slog.Logger
}

func NewDiscoveryService(
	store DiscoveryStore,
	cacheStore CacheStore,
	cfg config.DiscoveryConfig,
	logger *slog.Logger,
) *DiscoveryService {
	return &DiscoveryService{
		store:  store,
		cache:  cacheStore,
		cfg:    cfg,
		logger: logger.With("component", "discovery"),
	}
}

func (s *DiscoveryService) ListPublished(ctx context.Context, page, limit int) (*domain.ContentPage, error) {
	page, limit = s.sanitizePaging(page, limit, s.cfg.MaxPageSize)

	key := cache.Key(opContentList, page, limit)
	if cached, ok := s.lookup(ctx, key, &domain.ContentPage{}); ok {
		return cached.(*domain.ContentPage), nil
	}

	data, total, err := s.store.FindPublished(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list published: %w", err)
	}

	result := buildPage(data, total, page, limit)
	s.populate(ctx, key, result, s.cfg.ListTTL)

	return result, nil
}

func (s *DiscoveryService) GetPublishedByID(ctx context.Context, id int64) (*domain.Content, error) {
	if id <= 0 {
		return nil, domain.ErrNotFound
	}

	key := cache.Key(opContentItem, id)
	if cached, ok := s.lookup(ctx, key, &domain.Content{}); ok {
		return cached.(*domain.Content), nil
	}

	content, err := s.store.FindPublishedByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.populate(ctx, key, content, s.cfg.ItemTTL)
	return content, nil
}

func (s *DiscoveryService) SearchPublished(ctx context.Context, query string, page, limit int) (*domain.SearchResult, error) {
	cleanQuery := sanitizeQuery(query)
	if cleanQuery == "" {
		return emptySearchResult(query, page), nil
	}

	page, limit = s.sanitizePaging(page, limit, s.cfg.MaxSearchPageSize)

	key := cache.Key(opContentSearch, cleanQuery, page, limit)
	if cached, ok := s.lookup(ctx, key, &domain.SearchResult{}); ok {
		return cached.(*domain.SearchResult), nil
	}

	searchStart := time.Now()
	data, total, err := s.store.SearchPublished(ctx, cleanQuery, page, limit)
	if err != nil {
		return nil, fmt.Errorf("search published: %w", err)
	}

	result := &domain.SearchResult{
		ContentPage: *buildPage(data, total, page, limit),
		Query:       cleanQuery,
		SearchTime:  time.Since(searchStart).Milliseconds(),
	}
	s.populate(ctx, key, result, s.cfg.SearchTTL)

	return result, nil
}

func (s *DiscoveryService) ListLatest(ctx context.Context, n int) ([]domain.Content, error) {
	if n < 1 {
		n = 1
	}
	if n > maxLatestCount {
		n = maxLatestCount
	}

	key := cache.Key(opContentLatest, n)
	var contents []domain.Content
	if raw, ok := s.cache.Get(ctx, key); ok {
		if err := json.Unmarshal(raw, &contents); err == nil {
			return contents, nil
		}
		s.logger.Debug("discarding undecodable cache entry", "key", key)
	}

	contents, err := s.store.FindLatest(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("list latest: %w", err)
	}

	s.populate(ctx, key, contents, s.cfg.LatestTTL)
	return contents, nil
}

// InvalidateContent evicts a single record's cache entry.
func (s *DiscoveryService) InvalidateContent(ctx context.Context, contentID int64) {
	s.cache.Delete(ctx, cache.Key(opContentItem, contentID))
}

// InvalidateAll evicts every list, search and latest entry; the shape of any
// cached collection may have changed.
func (s *DiscoveryService) InvalidateAll(ctx context.Context) {
	s.cache.DeleteByPattern(ctx, opContentList+"*")
	s.cache.DeleteByPattern(ctx, opContentSearch+"*")
	s.cache.DeleteByPattern(ctx, opContentLatest+"*")
}

// lookup fetches and decodes a cached entry into dest. An undecodable entry
// is treated as a miss.
func (s *DiscoveryService) lookup(ctx context.Context, key string, dest any) (any, bool) {
	raw, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		s.logger.Debug("discarding undecodable cache entry", "key", key)
		return nil, false
	}
	return dest, true
}

// populate writes through to the cache; a failed write is already swallowed
// by the store, the freshly computed value is returned to the caller either
// way.
func (s *DiscoveryService) populate(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("failed to encode cache value", "key", key, "error", err)
		return
	}
	s.cache.Set(ctx, key, raw, ttl)
}

func (s *DiscoveryService) sanitizePaging(page, limit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.cfg.DefaultPageSize
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// sanitizeQuery measures in runes, not bytes: the minimum must not be
// satisfiable by a single multi-byte character, and the cap must not cut a
// rune in half and feed invalid UTF-8 to the store and the cache key.
func sanitizeQuery(query string) string {
	clean := strings.TrimSpace(query)
	runes := []rune(clean)
	if len(runes) < minSearchQueryLength {
		return ""
	}
	if len(runes) > maxSearchQueryLength {
		clean = string(runes[:maxSearchQueryLength])
	}
	return clean
}

func buildPage(data []domain.Content, total, page, limit int) *domain.ContentPage {
	lastPage := (total + limit - 1) / limit

	return &domain.ContentPage{
		Data:        data,
		Total:       total,
		Page:        page,
		LastPage:    lastPage,
		HasNext:     page < lastPage,
		HasPrevious: page > 1,
	}
}

func emptySearchResult(query string, page int) *domain.SearchResult {
	if page < 1 {
		page = 1
	}
	return &domain.SearchResult{
		ContentPage: domain.ContentPage{
			Data: []domain.Content{},
			Page: page,
		},
		Query: strings.TrimSpace(query),
	}
}
