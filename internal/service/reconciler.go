package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"content_syncer/internal/domain"
)

const (
	maxBodyLength = 5000
	watchURLBase  = "https://www.youtube.com/watch?v="
)

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// ReconcileOutcome is the applied decision for one external item.
type ReconcileOutcome struct {
	Action  domain.SyncAction
	Content *domain.Content
}

// Reconciler decides, per external item, whether the canonical store needs a
// create, an update, or nothing. Reconciling the same unchanged item twice is
// a no-op, which is what makes a failed pass safe to retry.
type Reconciler struct {
	store       ContentStore
	writer      *ContentWriter
	publisher   EventPublisher
	autoPublish bool
	logger      *slog.Logger
}

func NewReconciler(
	store ContentStore,
	writer *ContentWriter,
	publisher EventPublisher,
	autoPublish bool,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		store:       store,
		writer:      writer,
		publisher:   publisher,
		autoPublish: autoPublish,
		logger:      logger.With("component", "reconciler"),
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, video domain.VideoMetadata) (*ReconcileOutcome, error) {
	if video.ID == "" {
		return nil, ErrMissingExternalID
	}

	input := r.buildInput(video)

	existing, err := r.store.FindByExternalID(ctx, video.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup by external id: %w", err)
	}

	if existing == nil {
		created, err := r.writer.Create(ctx, input)
		if err != nil {
			return nil, err
		}
		// The created event is batched by the engine after the pass.
		return &ReconcileOutcome{Action: domain.SyncActionCreate, Content: created}, nil
	}

	if !needsUpdate(existing, input) {
		r.logger.Debug("skipping unchanged item", "external_id", video.ID, "title", existing.Title)
		return &ReconcileOutcome{Action: domain.SyncActionSkip, Content: existing}, nil
	}

	updated, err := r.writer.Update(ctx, existing.ID, patchFromInput(input))
	if err != nil {
		return nil, err
	}

	r.publisher.PublishContentUpdated(updated.ID, updateAction(existing, updated))
	return &ReconcileOutcome{Action: domain.SyncActionUpdate, Content: updated}, nil
}

// needsUpdate compares only the fields the provider actually changes upstream,
// so an unchanged item never causes a write or a downstream event.
func needsUpdate(existing *domain.Content, input domain.ContentInput) bool {
	return existing.Title != input.Title ||
		existing.Body != input.Body ||
		!strPtrEqual(existing.ThumbnailURL, input.ThumbnailURL)
}

func updateAction(old, updated *domain.Content) domain.ContentAction {
	switch {
	case !old.IsPublished && updated.IsPublished:
		return domain.ActionPublished
	case old.IsPublished && !updated.IsPublished:
		return domain.ActionUnpublished
	default:
		return domain.ActionUpdated
	}
}

func (r *Reconciler) buildInput(video domain.VideoMetadata) domain.ContentInput {
	videoURL := watchURLBase + video.ID
	publishedAt := video.PublishedAt

	input := domain.ContentInput{
		Title:       video.Title,
		Body:        formatBody(video.Description, video.ID),
		VideoURL:    &videoURL,
		ExternalID:  &video.ID,
		IsPublished: r.autoPublish,
		PublishedAt: &publishedAt,
	}
	if video.ThumbnailURL != "" {
		thumb := video.ThumbnailURL
		input.ThumbnailURL = &thumb
	}
	if video.ChannelTitle != "" {
		channel := video.ChannelTitle
		input.ExternalChannel = &channel
	}
	return input
}

func patchFromInput(input domain.ContentInput) domain.ContentPatch {
	return domain.ContentPatch{
		Title:           &input.Title,
		Body:            &input.Body,
		ThumbnailURL:    input.ThumbnailURL,
		VideoURL:        input.VideoURL,
		ExternalChannel: input.ExternalChannel,
		IsPublished:     &input.IsPublished,
		PublishedAt:     input.PublishedAt,
	}
}

func formatBody(description, videoID string) string {
	body := description
	if len(body) > maxBodyLength {
		// Cut on a rune boundary; a mid-rune cut would produce invalid
		// UTF-8 that Postgres rejects on every subsequent pass.
		cut := maxBodyLength
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "..."
	}

	body = excessNewlines.ReplaceAllString(body, "\n\n")
	body = strings.TrimSpace(body)
	body += "\n\n---\n\nWatch on YouTube: " + watchURLBase + videoID

	return body
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
