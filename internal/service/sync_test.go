package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"content_syncer/internal/config"
	"content_syncer/internal/domain"
	"content_syncer/internal/service/mocks"
	"content_syncer/testdata/utils"
)

type IngestionEngineTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	provider     *mocks.MockProvider
	contentStore *mocks.MockContentStore
	watermarks   *mocks.MockWatermarkStore
	txManager    *mocks.MockTransactionManager
	validator    *mocks.MockValidator
	publisher    *mocks.MockEventPublisher

	engine *IngestionEngine
	cfg    config.SyncConfig
	logger *slog.Logger
}

func (s *IngestionEngineTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.provider = mocks.NewMockProvider(s.ctrl)
	s.contentStore = mocks.NewMockContentStore(s.ctrl)
	s.watermarks = mocks.NewMockWatermarkStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.validator = mocks.NewMockValidator(s.ctrl)
	s.publisher = mocks.NewMockEventPublisher(s.ctrl)

	s.cfg = config.SyncConfig{
		Interval:        time.Hour,
		MaxItemsPerPass: 20,
		AutoPublish:     true,
		PassTimeout:     5 * time.Minute,
	}

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.provider.EXPECT().QuotaUsage().Return(domain.QuotaUsage{Used: 4, Limit: 10000}).AnyTimes()

	writer := NewContentWriter(s.contentStore, s.txManager, s.validator, s.publisher, s.logger)
	reconciler := NewReconciler(s.contentStore, writer, s.publisher, s.cfg.AutoPublish, s.logger)

	s.engine = NewIngestionEngine(
		s.provider,
		reconciler,
		s.watermarks,
		s.publisher,
		s.cfg,
		"@testchannel",
		true,
		s.logger,
	)
}

func (s *IngestionEngineTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestIngestionEngineTestSuite(t *testing.T) {
	suite.Run(t, new(IngestionEngineTestSuite))
}

func (s *IngestionEngineTestSuite) expectTransaction() {
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
}

func (s *IngestionEngineTestSuite) TestRunSyncPass_CreatesNewContent() {
	ctx := context.Background()

	vid := domain.VideoMetadata{
		ID:           "vid-1",
		Title:        "Episode 1",
		Description:  "First episode",
		ChannelTitle: "Test Channel",
		PublishedAt:  time.Now().Add(-time.Hour),
	}

	s.provider.EXPECT().ResolveChannel(ctx, "@testchannel").Return("UC123", nil)
	s.watermarks.EXPECT().Get(ctx, "UC123").Return(&domain.SyncWatermark{ChannelID: "UC123"}, nil)
	s.provider.EXPECT().ListVideos(ctx, "UC123", s.cfg.MaxItemsPerPass, nil).
		Return([]domain.VideoMetadata{vid}, nil)

	s.contentStore.EXPECT().FindByExternalID(ctx, "vid-1").Return(nil, nil)
	s.validator.EXPECT().ValidateCreate(gomock.Any()).Return(nil)
	s.contentStore.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, input domain.ContentInput) (*domain.Content, error) {
			s.Equal("Episode 1", input.Title)
			s.Contains(input.Body, "Watch on YouTube")
			s.True(input.IsPublished)
			s.Require().NotNil(input.ExternalID)
			s.Equal("vid-1", *input.ExternalID)
			return &domain.Content{ID: 100, Title: input.Title, IsPublished: true}, nil
		},
	)

	s.watermarks.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, wm *domain.SyncWatermark) error {
			s.False(wm.LastSyncedAt.IsZero())
			s.Equal(int64(1), wm.TotalSynced)
			return nil
		},
	)

	s.publisher.EXPECT().PublishContentUpdated(int64(100), domain.ActionCreated)
	s.publisher.EXPECT().PublishBulkInvalidation()

	result, err := s.engine.RunSyncPass(ctx)

	s.NoError(err)
	s.True(result.Success)
	s.Equal(1, result.Processed)
	s.Equal(1, result.Created)
	s.Equal(0, result.Updated)
	s.Equal(0, result.Skipped)
	s.Equal(0, result.Failed)
	s.Equal(result, s.engine.LastResult())
}

func (s *IngestionEngineTestSuite) TestRunSyncPass_SkipsUnchangedContent() {
	ctx := context.Background()
	lastSync := time.Now().Add(-24 * time.Hour)

	vid := domain.VideoMetadata{
		ID:           "vid-1",
		Title:        "Episode 1",
		Description:  "Episode body",
		ThumbnailURL: "https://img.example/1.jpg",
		PublishedAt:  time.Now().Add(-time.Hour),
	}

	// The record as a previous pass would have stored it.
	existing := &domain.Content{
		ID:           7,
		Title:        "Episode 1",
		Body:         "Episode body\n\n---\n\nWatch on YouTube: https://www.youtube.com/watch?v=vid-1",
		ThumbnailURL: utils.Ptr("https://img.example/1.jpg"),
		IsPublished:  true,
	}

	s.provider.EXPECT().ResolveChannel(ctx, "@testchannel").Return("UC123", nil)
	s.watermarks.EXPECT().Get(ctx, "UC123").
		Return(&domain.SyncWatermark{ChannelID: "UC123", LastSyncedAt: lastSync, TotalSynced: 5}, nil)
	s.provider.EXPECT().ListVideos(ctx, "UC123", s.cfg.MaxItemsPerPass, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, _ int, after *time.Time) ([]domain.VideoMetadata, error) {
			s.Require().NotNil(after)
			s.True(after.Equal(lastSync))
			return []domain.VideoMetadata{vid}, nil
		},
	)

	s.contentStore.EXPECT().FindByExternalID(ctx, "vid-1").Return(existing, nil)

	s.watermarks.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, wm *domain.SyncWatermark) error {
			s.Equal(int64(5), wm.TotalSynced)
			return nil
		},
	)

	result, err := s.engine.RunSyncPass(ctx)

	s.NoError(err)
	s.True(result.Success)
	s.Equal(1, result.Processed)
	s.Equal(0, result.Created)
	s.Equal(0, result.Updated)
	s.Equal(1, result.Skipped)
}

func (s *IngestionEngineTestSuite) TestRunSyncPass_UpdatesChangedContent() {
	ctx := context.Background()

	vid := domain.VideoMetadata{
		ID:          "vid-1",
		Title:       "New Title",
		Description: "Changed upstream",
		PublishedAt: time.Now().Add(-time.Hour),
	}

	existing := &domain.Content{ID: 5, Title: "Old Title", Body: "old", IsPublished: false}
	updated := &domain.Content{ID: 5, Title: "New Title", IsPublished: true}

	s.provider.EXPECT().ResolveChannel(ctx, "@testchannel").Return("UC123", nil)
	s.watermarks.EXPECT().Get(ctx, "UC123").Return(&domain.SyncWatermark{ChannelID: "UC123"}, nil)
	s.provider.EXPECT().ListVideos(ctx, "UC123", s.cfg.MaxItemsPerPass, nil).
		Return([]domain.VideoMetadata{vid}, nil)

	s.contentStore.EXPECT().FindByExternalID(ctx, "vid-1").Return(existing, nil)
	s.expectTransaction()
	s.contentStore.EXPECT().FindByID(ctx, int64(5)).Return(existing, nil)
	s.validator.EXPECT().ValidateUpdate(existing, gomock.Any()).Return(nil)
	s.contentStore.EXPECT().Update(ctx, int64(5), gomock.Any()).Return(updated, nil)

	// Unpublished record becoming visible must be labelled as a publication.
	s.publisher.EXPECT().PublishContentUpdated(int64(5), domain.ActionPublished)

	s.watermarks.EXPECT().Update(ctx, gomock.Any()).Return(nil)
	s.publisher.EXPECT().PublishBulkInvalidation()

	result, err := s.engine.RunSyncPass(ctx)

	s.NoError(err)
	s.True(result.Success)
	s.Equal(1, result.Updated)
	s.Equal(0, result.Created)
}

func (s *IngestionEngineTestSuite) TestRunSyncPass_RejectsConcurrentPass() {
	started := make(chan struct{})
	release := make(chan struct{})

	s.provider.EXPECT().ResolveChannel(gomock.Any(), "@testchannel").DoAndReturn(
		func(context.Context, string) (string, error) {
			close(started)
			<-release
			return "", nil
		},
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.engine.RunSyncPass(context.Background())
	}()

	<-started
	_, err := s.engine.RunSyncPass(context.Background())
	s.ErrorIs(err, ErrSyncInProgress)

	close(release)
	<-done

	// The guard is released once the first pass finishes.
	s.False(s.engine.Status().Running)
}

func (s *IngestionEngineTestSuite) TestRunSyncPass_PartialFailureDoesNotAbort() {
	ctx := context.Background()

	good := domain.VideoMetadata{
		ID:          "vid-ok",
		Title:       "Good Episode",
		Description: "fine",
		PublishedAt: time.Now().Add(-time.Hour),
	}
	bad := domain.VideoMetadata{
		Title:       "Broken Episode",
		PublishedAt: time.Now().Add(-time.Hour),
	}

	s.provider.EXPECT().ResolveChannel(ctx, "@testchannel").Return("UC123", nil)
	s.watermarks.EXPECT().Get(ctx, "UC123").Return(&domain.SyncWatermark{ChannelID: "UC123"}, nil)
	s.provider.EXPECT().ListVideos(ctx, "UC123", s.cfg.MaxItemsPerPass, nil).
		Return([]domain.VideoMetadata{good, bad}, nil)

	s.contentStore.EXPECT().FindByExternalID(ctx, "vid-ok").Return(nil, nil)
	s.validator.EXPECT().ValidateCreate(gomock.Any()).Return(nil)
	s.contentStore.EXPECT().Create(ctx, gomock.Any()).
		Return(&domain.Content{ID: 200, Title: "Good Episode"}, nil)

	s.watermarks.EXPECT().Update(ctx, gomock.Any()).Return(nil)
	s.publisher.EXPECT().PublishContentUpdated(int64(200), domain.ActionCreated)
	s.publisher.EXPECT().PublishBulkInvalidation()

	result, err := s.engine.RunSyncPass(ctx)

	s.NoError(err)
	s.False(result.Success)
	s.Equal(2, result.Processed)
	s.Equal(1, result.Created)
	s.Equal(1, result.Failed)
	s.Require().Len(result.Errors, 1)
	s.Contains(result.Errors[0], "Broken Episode")
}

func (s *IngestionEngineTestSuite) TestRunSyncPass_ProviderFailureLeavesWatermark() {
	ctx := context.Background()

	s.provider.EXPECT().ResolveChannel(ctx, "@testchannel").Return("UC123", nil)
	s.watermarks.EXPECT().Get(ctx, "UC123").Return(&domain.SyncWatermark{ChannelID: "UC123"}, nil)
	s.provider.EXPECT().ListVideos(ctx, "UC123", s.cfg.MaxItemsPerPass, nil).
		Return(nil, errors.New("quota exceeded"))

	result, err := s.engine.RunSyncPass(ctx)

	s.Nil(result)
	var ingErr *IngestionError
	s.ErrorAs(err, &ingErr)
	s.Contains(err.Error(), "quota exceeded")
}

func (s *IngestionEngineTestSuite) TestRunSyncPass_ChannelNotFound() {
	ctx := context.Background()

	s.provider.EXPECT().ResolveChannel(ctx, "@testchannel").Return("", nil)

	result, err := s.engine.RunSyncPass(ctx)

	s.Nil(result)
	s.ErrorIs(err, ErrChannelNotFound)
}

func (s *IngestionEngineTestSuite) TestRunSyncPass_CancelledMidPass() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	vids := []domain.VideoMetadata{
		{ID: "vid-1", Title: "Episode 1", PublishedAt: time.Now()},
		{ID: "vid-2", Title: "Episode 2", PublishedAt: time.Now()},
	}

	s.provider.EXPECT().ResolveChannel(ctx, "@testchannel").Return("UC123", nil)
	s.watermarks.EXPECT().Get(ctx, "UC123").Return(&domain.SyncWatermark{ChannelID: "UC123"}, nil)
	s.provider.EXPECT().ListVideos(ctx, "UC123", s.cfg.MaxItemsPerPass, nil).DoAndReturn(
		func(context.Context, string, int, *time.Time) ([]domain.VideoMetadata, error) {
			cancel()
			return vids, nil
		},
	)

	result, err := s.engine.RunSyncPass(ctx)

	s.Nil(result)
	s.ErrorIs(err, context.Canceled)
}

func (s *IngestionEngineTestSuite) TestStatus() {
	st := s.engine.Status()

	s.True(st.Enabled)
	s.False(st.Running)
	s.Equal("@testchannel", st.ChannelHandle)
	s.False(st.NextRun.IsZero())
}

func (s *IngestionEngineTestSuite) TestProviderHealth() {
	ctx := context.Background()

	s.provider.EXPECT().CheckAccess(ctx).Return(true, nil)

	ok, usage := s.engine.ProviderHealth(ctx)
	s.True(ok)
	s.Equal(4, usage.Used)
	s.Equal(10000, usage.Limit)
}

func (s *IngestionEngineTestSuite) TestProviderHealth_AccessError() {
	ctx := context.Background()

	s.provider.EXPECT().CheckAccess(ctx).Return(false, errors.New("invalid key"))

	ok, usage := s.engine.ProviderHealth(ctx)
	s.False(ok)
	s.Equal(10000, usage.Limit)
}
