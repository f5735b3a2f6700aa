package youtube

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"content_syncer/testdata/utils"
)

const (
	searchFound = `{"items":[{"snippet":{"channelId":"UC123"}}]}`
	searchEmpty = `{"items":[]}`

	channelByUsername = `{"items":[{"id":"UC456"}]}`

	channelWithUploads = `{"items":[{"id":"UC123","contentDetails":{"relatedPlaylists":{"uploads":"UU123"}}}]}`

	playlistTwoItems = `{"items":[
		{"snippet":{"resourceId":{"videoId":"vid-1"}}},
		{"snippet":{"resourceId":{"videoId":"vid-2"}}}
	]}`

	videoDetails = `{"items":[
		{
			"id":"vid-1",
			"snippet":{
				"title":"Episode 1",
				"description":"First episode",
				"publishedAt":"2026-08-20T10:00:00Z",
				"channelId":"UC123",
				"channelTitle":"Test Channel",
				"thumbnails":{
					"default":{"url":"https://img.example/default.jpg"},
					"maxres":{"url":"https://img.example/maxres.jpg"}
				}
			},
			"contentDetails":{"duration":"PT42M"},
			"statistics":{"viewCount":"1500"}
		},
		{
			"id":"vid-2",
			"snippet":{
				"title":"Episode 2",
				"description":"Second episode",
				"publishedAt":"2026-08-10T10:00:00Z",
				"channelId":"UC123",
				"channelTitle":"Test Channel",
				"thumbnails":{"high":{"url":"https://img.example/high.jpg"}}
			},
			"contentDetails":{"duration":"PT30M"},
			"statistics":{"viewCount":"not-a-number"}
		}
	]}`
)

type ClientTestSuite struct {
	suite.Suite
	logger *slog.Logger
}

func (s *ClientTestSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) newClient(handler http.HandlerFunc) (*Client, func()) {
	server := httptest.NewServer(handler)
	client := New(Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Timeout:    5 * time.Second,
		QuotaLimit: 10000,
	}, s.logger)
	return client, server.Close
}

func (s *ClientTestSuite) TestResolveChannel_ViaSearch() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/search", r.URL.Path)
		s.Equal("test-key", r.URL.Query().Get("key"))
		s.Equal("testchannel", r.URL.Query().Get("q"))
		w.Write([]byte(searchFound))
	})
	defer done()

	id, err := client.ResolveChannel(context.Background(), "@testchannel")

	s.NoError(err)
	s.Equal("UC123", id)
}

func (s *ClientTestSuite) TestResolveChannel_FallsBackToUsername() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			w.Write([]byte(searchEmpty))
		case "/channels":
			s.Equal("legacyname", r.URL.Query().Get("forUsername"))
			w.Write([]byte(channelByUsername))
		default:
			http.NotFound(w, r)
		}
	})
	defer done()

	id, err := client.ResolveChannel(context.Background(), "legacyname")

	s.NoError(err)
	s.Equal("UC456", id)
}

func (s *ClientTestSuite) TestResolveChannel_NotFound() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search" {
			w.Write([]byte(searchEmpty))
			return
		}
		w.Write([]byte(`{"items":[]}`))
	})
	defer done()

	id, err := client.ResolveChannel(context.Background(), "@ghost")

	s.NoError(err)
	s.Equal("", id)
}

func (s *ClientTestSuite) TestResolveChannel_RateLimited() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	defer done()

	_, err := client.ResolveChannel(context.Background(), "@testchannel")

	s.ErrorIs(err, ErrRateLimited)
}

func (s *ClientTestSuite) listHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/channels":
			w.Write([]byte(channelWithUploads))
		case "/playlistItems":
			s.Equal("UU123", r.URL.Query().Get("playlistId"))
			w.Write([]byte(playlistTwoItems))
		case "/videos":
			s.Equal("vid-1,vid-2", r.URL.Query().Get("id"))
			w.Write([]byte(videoDetails))
		default:
			http.NotFound(w, r)
		}
	}
}

func (s *ClientTestSuite) TestListVideos() {
	client, done := s.newClient(s.listHandler())
	defer done()

	videos, err := client.ListVideos(context.Background(), "UC123", 20, nil)

	s.NoError(err)
	s.Require().Len(videos, 2)

	s.Equal("vid-1", videos[0].ID)
	s.Equal("Episode 1", videos[0].Title)
	s.Equal("https://img.example/maxres.jpg", videos[0].ThumbnailURL)
	s.Equal("Test Channel", videos[0].ChannelTitle)
	s.Equal("PT42M", videos[0].Duration)
	s.Equal(int64(1500), videos[0].ViewCount)
	s.Equal(time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC), videos[0].PublishedAt)

	s.Equal("vid-2", videos[1].ID)
	s.Equal("https://img.example/high.jpg", videos[1].ThumbnailURL)
	s.Equal(int64(0), videos[1].ViewCount)
}

func (s *ClientTestSuite) TestListVideos_FiltersByPublishedAfter() {
	client, done := s.newClient(s.listHandler())
	defer done()

	after := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	videos, err := client.ListVideos(context.Background(), "UC123", 20, utils.Ptr(after))

	s.NoError(err)
	s.Require().Len(videos, 1)
	s.Equal("vid-1", videos[0].ID)
}

func (s *ClientTestSuite) TestListVideos_CapsAtMaxResults() {
	client, done := s.newClient(s.listHandler())
	defer done()

	videos, err := client.ListVideos(context.Background(), "UC123", 1, nil)

	s.NoError(err)
	s.Require().Len(videos, 1)
	s.Equal("vid-1", videos[0].ID)
}

func (s *ClientTestSuite) TestListVideos_NoUploadsPlaylist() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	})
	defer done()

	_, err := client.ListVideos(context.Background(), "UC999", 20, nil)

	s.ErrorContains(err, "no uploads playlist")
}

func (s *ClientTestSuite) TestListVideos_SkipsUnparseableDates() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/channels":
			w.Write([]byte(channelWithUploads))
		case "/playlistItems":
			w.Write([]byte(playlistTwoItems))
		case "/videos":
			w.Write([]byte(`{"items":[
				{"id":"vid-1","snippet":{"title":"Bad Date","publishedAt":"yesterday"}},
				{"id":"vid-2","snippet":{"title":"Good Date","publishedAt":"2026-08-10T10:00:00Z"}}
			]}`))
		default:
			http.NotFound(w, r)
		}
	})
	defer done()

	videos, err := client.ListVideos(context.Background(), "UC123", 20, nil)

	s.NoError(err)
	s.Require().Len(videos, 1)
	s.Equal("vid-2", videos[0].ID)
}

func (s *ClientTestSuite) TestCheckAccess() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchEmpty))
	})
	defer done()

	ok, err := client.CheckAccess(context.Background())

	s.NoError(err)
	s.True(ok)
}

func (s *ClientTestSuite) TestCheckAccess_Unauthorized() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	defer done()

	ok, err := client.CheckAccess(context.Background())

	s.False(ok)
	s.ErrorIs(err, ErrRateLimited)
}

func (s *ClientTestSuite) TestQuotaAccounting() {
	client, done := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			w.Write([]byte(searchFound))
		default:
			w.Write([]byte(channelWithUploads))
		}
	})
	defer done()

	s.Equal(0, client.QuotaUsage().Used)

	_, err := client.ResolveChannel(context.Background(), "@testchannel")
	s.NoError(err)
	s.Equal(1, client.QuotaUsage().Used)

	// A listing costs two units regardless of the page fetches behind it.
	_, _ = client.ListVideos(context.Background(), "UC123", 20, nil)
	s.Equal(3, client.QuotaUsage().Used)
	s.Equal(10000, client.QuotaUsage().Limit)
}
