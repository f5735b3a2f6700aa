package domain

import "time"

// Content is the canonical record for one episode. Records are created either
// by the ingestion path or by a direct write; both go through the same
// validation, so origin is not observable on the record itself.
type Content struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Body            string     `json:"body"`
	ThumbnailURL    *string    `json:"thumbnailUrl,omitempty"`
	VideoURL        *string    `json:"videoUrl,omitempty"`
	ExternalID      *string    `json:"externalId,omitempty"`
	ExternalChannel *string    `json:"externalChannel,omitempty"`
	IsPublished     bool       `json:"isPublished"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ContentInput carries the fields of a create request.
type ContentInput struct {
	Title           string
	Body            string
	ThumbnailURL    *string
	VideoURL        *string
	ExternalID      *string
	ExternalChannel *string
	IsPublished     bool
	PublishedAt     *time.Time
}

// ContentPatch is a partial update; nil fields are left untouched.
type ContentPatch struct {
	Title           *string
	Body            *string
	ThumbnailURL    *string
	VideoURL        *string
	ExternalChannel *string
	IsPublished     *bool
	PublishedAt     *time.Time
}

// ContentPage is one page of published records with pagination metadata.
type ContentPage struct {
	Data        []Content `json:"data"`
	Total       int       `json:"total"`
	Page        int       `json:"page"`
	LastPage    int       `json:"lastPage"`
	HasNext     bool      `json:"hasNext"`
	HasPrevious bool      `json:"hasPrevious"`
}

// SearchResult is a ContentPage plus the executed query and its duration.
type SearchResult struct {
	ContentPage
	Query      string `json:"query"`
	SearchTime int64  `json:"searchTime"` // milliseconds
}
