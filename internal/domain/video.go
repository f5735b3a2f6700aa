package domain

import "time"

// VideoMetadata is one externally-sourced item as returned by the provider,
// already mapped out of the provider's wire format.
type VideoMetadata struct {
	ID           string
	Title        string
	Description  string
	ThumbnailURL string
	ChannelID    string
	ChannelTitle string
	PublishedAt  time.Time
	Duration     string
	ViewCount    int64
}
