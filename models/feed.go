package models

import (
	"time"
)

// HostActivityEntry is one host broadcast. The feed keeps entries
// newest-first and deduplicates by ID.
type HostActivityEntry struct {
	ID         string    `json:"id"`
	Message    string    `json:"message"`
	PostedAt   time.Time `json:"posted_at"`
	AuthorName string    `json:"author_name"`
}

// ReadCursor marks the newest entry a viewer has acknowledged. It only
// ever moves forward in time.
type ReadCursor struct {
	LastSeenAt time.Time `json:"last_seen_at"`
}

// FeedPage is one page of older broadcasts from the pagination endpoint.
type FeedPage struct {
	Entries    []HostActivityEntry `json:"entries"`
	HasMore    bool                `json:"has_more"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

type AnnouncementRequest struct {
	Message string `json:"message" binding:"required"`
}

type AcknowledgeRequest struct {
	LastSeenAt time.Time `json:"last_seen_at" binding:"required"`
}

type ViewportRequest struct {
	AtTop bool `json:"at_top"`
}
