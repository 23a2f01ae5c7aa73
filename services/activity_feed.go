package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/xAleksandar/tonight-app-sub000/models"
	"github.com/xAleksandar/tonight-app-sub000/utils"
)

// HostActivityFeed is the newest-first broadcast log a guest sees inside
// an event, with the viewer's read cursor layered on top. Entries are
// deduplicated by id, which is what keeps a locally published
// announcement from double-inserting when the socket echoes it back.
type HostActivityFeed struct {
	api     EventAPI
	eventID string
	notify  Notifier

	mu          sync.Mutex
	entries     []models.HostActivityEntry
	known       map[string]bool
	cursor      *models.ReadCursor
	hasMore     bool
	nextCursor  string
	viewerAtTop bool
}

func NewHostActivityFeed(api EventAPI, eventID string, notify Notifier) *HostActivityFeed {
	if notify == nil {
		notify = NopNotifier{}
	}
	return &HostActivityFeed{
		api:         api,
		eventID:     eventID,
		notify:      notify,
		known:       make(map[string]bool),
		viewerAtTop: true,
	}
}

// Reset replaces the cached feed with an authoritative snapshot.
func (f *HostActivityFeed) Reset(entries []models.HostActivityEntry, cursor *models.ReadCursor, hasMore bool, nextCursor string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries = nil
	f.known = make(map[string]bool, len(entries))
	for _, e := range entries {
		if f.known[e.ID] {
			continue
		}
		f.known[e.ID] = true
		f.entries = append(f.entries, e)
	}
	f.cursor = cursor
	f.hasMore = hasMore
	f.nextCursor = nextCursor
}

// Append inserts a new entry at the head of the feed and applies the
// auto-ack policy: viewers parked at the top get their cursor advanced
// right away, scrolled-away viewers get a badge instead. Returns false
// for a duplicate id (a no-op).
func (f *HostActivityFeed) Append(ctx context.Context, entry models.HostActivityEntry) bool {
	f.mu.Lock()
	if f.known[entry.ID] {
		f.mu.Unlock()
		return false
	}
	f.known[entry.ID] = true
	f.entries = insertNewestFirst(f.entries, entry)
	atTop := f.viewerAtTop
	f.mu.Unlock()

	f.notify.Notify(NoticeFeedUpdated, entry.ID)

	if atTop {
		if err := f.Acknowledge(ctx, entry.PostedAt); err != nil {
			utils.SafeWarn("auto-ack failed for entry %s: %v", entry.ID, err)
		}
	} else {
		f.notify.Notify(NoticeUnseenBadge, fmt.Sprintf("%d", f.UnseenCount()))
	}
	return true
}

// insertNewestFirst keeps the slice sorted newest-first. New entries land
// at index 0; a late arrival with an older timestamp slots in where it
// belongs.
func insertNewestFirst(entries []models.HostActivityEntry, entry models.HostActivityEntry) []models.HostActivityEntry {
	i := 0
	for i < len(entries) && entries[i].PostedAt.After(entry.PostedAt) {
		i++
	}
	entries = append(entries, models.HostActivityEntry{})
	copy(entries[i+1:], entries[i:])
	entries[i] = entry
	return entries
}

// UnseenCount is the number of entries posted strictly after the
// viewer's cursor, or every entry when no cursor exists yet.
func (f *HostActivityFeed) UnseenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cursor == nil {
		return len(f.entries)
	}
	count := 0
	for _, e := range f.entries {
		if e.PostedAt.After(f.cursor.LastSeenAt) {
			count++
		}
	}
	return count
}

// DividerIndex is where the "new since you last checked" marker renders:
// the index of the oldest unseen entry. Returns -1 when everything is
// seen or everything is unseen.
func (f *HostActivityFeed) DividerIndex() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cursor == nil {
		return -1
	}
	for i, e := range f.entries {
		if !e.PostedAt.After(f.cursor.LastSeenAt) {
			if i == 0 {
				return -1
			}
			return i - 1
		}
	}
	return -1
}

// Acknowledge advances the viewer's read cursor to timestamp, never
// backwards. A stale or equal timestamp is a local no-op and issues no
// network call, which makes repeated acks safe.
func (f *HostActivityFeed) Acknowledge(ctx context.Context, timestamp time.Time) error {
	f.mu.Lock()
	if f.cursor != nil && !timestamp.After(f.cursor.LastSeenAt) {
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()

	if err := f.api.AdvanceReadCursor(ctx, f.eventID, timestamp); err != nil {
		return errors.Wrap(err, "advance read cursor")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cursor == nil || timestamp.After(f.cursor.LastSeenAt) {
		f.cursor = &models.ReadCursor{LastSeenAt: timestamp}
	}
	return nil
}

// ReturnToTop is the viewer's explicit jump back to the newest entries.
// It re-enables auto-ack and acknowledges the newest timestamp.
func (f *HostActivityFeed) ReturnToTop(ctx context.Context) error {
	f.mu.Lock()
	f.viewerAtTop = true
	var newest *time.Time
	if len(f.entries) > 0 {
		t := f.entries[0].PostedAt
		newest = &t
	}
	f.mu.Unlock()

	if newest == nil {
		return nil
	}
	return f.Acknowledge(ctx, *newest)
}

// SetViewerAtTop records whether the viewer is scrolled to the top of
// the feed. Scrolled-away viewers keep their cursor until they return.
func (f *HostActivityFeed) SetViewerAtTop(atTop bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewerAtTop = atTop
}

// LoadEarlier pages older broadcasts onto the tail of the feed. Once the
// server reports the end, further calls return an empty page without a
// network call.
func (f *HostActivityFeed) LoadEarlier(ctx context.Context) (models.FeedPage, error) {
	f.mu.Lock()
	if !f.hasMore {
		f.mu.Unlock()
		return models.FeedPage{HasMore: false}, nil
	}
	before := f.nextCursor
	f.mu.Unlock()

	page, err := f.api.LoadHostActivity(ctx, f.eventID, before)
	if err != nil {
		return models.FeedPage{}, errors.Wrap(err, "load earlier")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range page.Entries {
		if f.known[e.ID] {
			continue
		}
		f.known[e.ID] = true
		f.entries = append(f.entries, e)
	}
	f.hasMore = page.HasMore
	f.nextCursor = page.NextCursor
	return page, nil
}

// Entries returns a copy of the feed, newest-first.
func (f *HostActivityFeed) Entries() []models.HostActivityEntry {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.HostActivityEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

// Cursor returns the viewer's current read cursor, or nil.
func (f *HostActivityFeed) Cursor() *models.ReadCursor {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cursor == nil {
		return nil
	}
	c := *f.cursor
	return &c
}

// HasMore reports whether older pages remain on the server.
func (f *HostActivityFeed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasMore
}
