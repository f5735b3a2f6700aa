// Package youtube implements the external video metadata provider against the
// YouTube Data API v3. Every call is billed against a fixed daily quota
// budget; crossing 90% of the budget logs a warning but does not block calls,
// the API itself rejects them once the budget is exhausted.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"content_syncer/internal/domain"
)

// ErrRateLimited marks transient quota/rate rejections (HTTP 403/429) so the
// engine can distinguish them from permanent failures.
var ErrRateLimited = errors.New("youtube api rate limited")

// Quota unit costs mirror the budget accounting of the sync pass: one unit to
// resolve a channel, two for a full video listing, one for an access check.
const (
	costChannelResolve = 1
	costVideoListing   = 2
	costAccessCheck    = 1
)

// playlistPageSize is the API's hard cap on playlistItems pages.
const playlistPageSize = 50

type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	QuotaLimit int
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	quotaLimit int64
	quotaUsed  atomic.Int64
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		quotaLimit: int64(cfg.QuotaLimit),
		logger:     logger.With("provider", "youtube"),
	}
}

// ResolveChannel maps a channel handle to its channel id. Returns an empty
// string when no channel matches.
func (c *Client) ResolveChannel(ctx context.Context, handle string) (string, error) {
	c.trackQuota(costChannelResolve)

	cleanHandle := strings.TrimPrefix(handle, "@")

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", cleanHandle)
	params.Set("type", "channel")
	params.Set("maxResults", "1")

	var search searchResponse
	if err := c.doGet(ctx, "/search", params, &search); err != nil {
		return "", fmt.Errorf("resolve channel %q: %w", handle, err)
	}

	if len(search.Items) > 0 && search.Items[0].Snippet.ChannelID != "" {
		return search.Items[0].Snippet.ChannelID, nil
	}

	// Legacy usernames are not findable via search.
	params = url.Values{}
	params.Set("part", "id")
	params.Set("forUsername", cleanHandle)

	var channels channelsResponse
	if err := c.doGet(ctx, "/channels", params, &channels); err != nil {
		return "", fmt.Errorf("resolve channel %q: %w", handle, err)
	}

	if len(channels.Items) > 0 {
		return channels.Items[0].ID, nil
	}

	return "", nil
}

// ListVideos fetches up to maxResults videos from the channel's uploads
// playlist, newest first. When publishedAfter is set, older items are
// filtered out client-side since playlist listings cannot be bounded by date.
func (c *Client) ListVideos(ctx context.Context, channelID string, maxResults int, publishedAfter *time.Time) ([]domain.VideoMetadata, error) {
	c.trackQuota(costVideoListing)

	params := url.Values{}
	params.Set("part", "contentDetails")
	params.Set("id", channelID)

	var channels channelsResponse
	if err := c.doGet(ctx, "/channels", params, &channels); err != nil {
		return nil, fmt.Errorf("fetch channel %s: %w", channelID, err)
	}

	if len(channels.Items) == 0 {
		return nil, fmt.Errorf("channel %s: no uploads playlist", channelID)
	}
	uploadsID := channels.Items[0].ContentDetails.RelatedPlaylists.Uploads
	if uploadsID == "" {
		return nil, fmt.Errorf("channel %s: no uploads playlist", channelID)
	}

	pageSize := maxResults
	if pageSize > playlistPageSize {
		pageSize = playlistPageSize
	}

	params = url.Values{}
	params.Set("part", "snippet")
	params.Set("playlistId", uploadsID)
	params.Set("maxResults", strconv.Itoa(pageSize))

	var playlist playlistItemsResponse
	if err := c.doGet(ctx, "/playlistItems", params, &playlist); err != nil {
		return nil, fmt.Errorf("list playlist %s: %w", uploadsID, err)
	}

	videoIDs := make([]string, 0, len(playlist.Items))
	for _, item := range playlist.Items {
		if id := item.Snippet.ResourceID.VideoID; id != "" {
			videoIDs = append(videoIDs, id)
		}
	}
	if len(videoIDs) == 0 {
		return nil, nil
	}

	params = url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("id", strings.Join(videoIDs, ","))

	var videos videosResponse
	if err := c.doGet(ctx, "/videos", params, &videos); err != nil {
		return nil, fmt.Errorf("fetch video details: %w", err)
	}

	return c.transform(videos.Items, maxResults, publishedAfter), nil
}

// CheckAccess issues a minimal API request to verify credentials.
func (c *Client) CheckAccess(ctx context.Context) (bool, error) {
	c.trackQuota(costAccessCheck)

	params := url.Values{}
	params.Set("part", "id")
	params.Set("q", "test")
	params.Set("maxResults", "1")

	var search searchResponse
	if err := c.doGet(ctx, "/search", params, &search); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) QuotaUsage() domain.QuotaUsage {
	return domain.QuotaUsage{
		Used:  int(c.quotaUsed.Load()),
		Limit: int(c.quotaLimit),
	}
}

func (c *Client) doGet(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", c.apiKey)
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("status %d: %w", resp.StatusCode, ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) trackQuota(cost int64) {
	used := c.quotaUsed.Add(cost)
	if used > c.quotaLimit*9/10 {
		c.logger.Warn("api quota usage high",
			"used", used,
			"limit", c.quotaLimit,
		)
	}
}

func (c *Client) transform(items []videoItem, maxResults int, publishedAfter *time.Time) []domain.VideoMetadata {
	videos := make([]domain.VideoMetadata, 0, len(items))

	for _, v := range items {
		if v.ID == "" {
			continue
		}

		publishedAt, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt)
		if err != nil {
			c.logger.Warn("failed to parse publish date",
				"video_id", v.ID,
				"published_at", v.Snippet.PublishedAt,
			)
			continue
		}

		if publishedAfter != nil && !publishedAt.After(*publishedAfter) {
			continue
		}

		viewCount, _ := strconv.ParseInt(v.Statistics.ViewCount, 10, 64)

		videos = append(videos, domain.VideoMetadata{
			ID:           v.ID,
			Title:        v.Snippet.Title,
			Description:  v.Snippet.Description,
			ThumbnailURL: v.Snippet.Thumbnails.bestThumbnail(),
			ChannelID:    v.Snippet.ChannelID,
			ChannelTitle: v.Snippet.ChannelTitle,
			PublishedAt:  publishedAt,
			Duration:     v.ContentDetails.Duration,
			ViewCount:    viewCount,
		})

		if len(videos) >= maxResults {
			break
		}
	}

	return videos
}
