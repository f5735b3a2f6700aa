package service

import (
	"fmt"
	"time"

	"content_syncer/internal/domain"
)

const (
	maxTitleLength = 500
	maxURLLength   = 2000

	// Published records younger than this cannot be deleted.
	deleteGracePeriod = 48 * time.Hour
)

// ContentRules is the default Validator. Rules apply identically to direct
// writes and to records arriving through ingestion.
type ContentRules struct {
	now func() time.Time
}

func NewContentRules() *ContentRules {
	return &ContentRules{now: time.Now}
}

func (r *ContentRules) ValidateCreate(input domain.ContentInput) error {
	if input.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(input.Title) > maxTitleLength {
		return fmt.Errorf("title exceeds %d characters", maxTitleLength)
	}
	if input.Body == "" {
		return fmt.Errorf("body is required")
	}
	if input.ThumbnailURL != nil && len(*input.ThumbnailURL) > maxURLLength {
		return fmt.Errorf("thumbnail url exceeds %d characters", maxURLLength)
	}
	if input.VideoURL != nil && len(*input.VideoURL) > maxURLLength {
		return fmt.Errorf("video url exceeds %d characters", maxURLLength)
	}
	if input.IsPublished {
		if err := r.validatePublication(input.PublishedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *ContentRules) ValidateUpdate(existing *domain.Content, patch domain.ContentPatch) error {
	if patch.Title != nil {
		if *patch.Title == "" {
			return fmt.Errorf("title cannot be emptied")
		}
		if len(*patch.Title) > maxTitleLength {
			return fmt.Errorf("title exceeds %d characters", maxTitleLength)
		}
	}
	if patch.Body != nil && *patch.Body == "" {
		return fmt.Errorf("body cannot be emptied")
	}
	if patch.ThumbnailURL != nil && len(*patch.ThumbnailURL) > maxURLLength {
		return fmt.Errorf("thumbnail url exceeds %d characters", maxURLLength)
	}
	if patch.VideoURL != nil && len(*patch.VideoURL) > maxURLLength {
		return fmt.Errorf("video url exceeds %d characters", maxURLLength)
	}

	becomesPublished := patch.IsPublished != nil && *patch.IsPublished && !existing.IsPublished
	if becomesPublished {
		publishedAt := patch.PublishedAt
		if publishedAt == nil {
			publishedAt = existing.PublishedAt
		}
		if err := r.validatePublication(publishedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *ContentRules) CanDelete(content *domain.Content) bool {
	if !content.IsPublished || content.PublishedAt == nil {
		return true
	}
	return r.now().Sub(*content.PublishedAt) > deleteGracePeriod
}

func (r *ContentRules) validatePublication(publishedAt *time.Time) error {
	if publishedAt == nil {
		return fmt.Errorf("published content requires a publication timestamp")
	}
	if publishedAt.After(r.now()) {
		return fmt.Errorf("publication timestamp cannot be in the future")
	}
	return nil
}
