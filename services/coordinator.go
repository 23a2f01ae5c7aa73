package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/xAleksandar/tonight-app-sub000/models"
	"github.com/xAleksandar/tonight-app-sub000/utils"
)

// Template placeholder replaced by each recipient's display name.
const templateNameToken = "{name}"

// DefaultInviteTemplate is used when the host doesn't type a custom
// invite message.
const DefaultInviteTemplate = "Hey {name}! Come join us tonight 🎉"

// EventCoordinator is the single surface a UI (or a headless harness)
// drives: join-request decisions, the host activity feed, and batch
// friend invites, kept reconciled with the server.
type EventCoordinator struct {
	api     EventAPI
	eventID string
	notify  Notifier

	Requests *JoinRequestWorkflow
	Feed     *HostActivityFeed
	Invites  *BatchInviteDispatcher

	mu            sync.Mutex
	hostID        string
	cancelRefresh context.CancelFunc
}

func NewEventCoordinator(api EventAPI, eventID string, notify Notifier) *EventCoordinator {
	if notify == nil {
		notify = NopNotifier{}
	}
	return &EventCoordinator{
		api:      api,
		eventID:  eventID,
		notify:   notify,
		Requests: NewJoinRequestWorkflow(api),
		Feed:     NewHostActivityFeed(api, eventID, notify),
		Invites:  NewBatchInviteDispatcher(api, eventID, notify),
	}
}

// Refresh pulls the authoritative event snapshot and resets every cached
// collection from it. A refresh started while another is in flight
// cancels the older one, so a late response can never overwrite fresher
// state.
func (c *EventCoordinator) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.cancelRefresh != nil {
		c.cancelRefresh()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancelRefresh = cancel
	c.mu.Unlock()
	defer cancel()

	snapshot, err := c.api.EventSnapshot(ctx, c.eventID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return errors.Wrap(err, "refresh event")
	}
	if ctx.Err() != nil {
		// Superseded while decoding; drop the stale snapshot.
		return ctx.Err()
	}

	c.mu.Lock()
	c.hostID = snapshot.HostID
	c.mu.Unlock()

	c.Requests.Reset(snapshot.JoinRequests, snapshot.Attendees)
	c.Feed.Reset(snapshot.HostActivity, snapshot.ReadCursor,
		len(snapshot.HostActivity) > 0, oldestEntryCursor(snapshot.HostActivity))
	c.Invites.Reset(snapshot.InviteCandidates)
	return nil
}

// oldestEntryCursor derives the pagination cursor for the next
// load-earlier call from the tail of the snapshot feed.
func oldestEntryCursor(entries []models.HostActivityEntry) string {
	if len(entries) == 0 {
		return ""
	}
	return entries[len(entries)-1].PostedAt.UTC().Format(time.RFC3339Nano)
}

// Approve confirms a pending join request.
func (c *EventCoordinator) Approve(ctx context.Context, requestID string) (models.Attendee, error) {
	return c.Requests.Decide(ctx, requestID, models.DecisionAccepted)
}

// Reject moves a pending join request to the waitlist.
func (c *EventCoordinator) Reject(ctx context.Context, requestID string) (models.Attendee, error) {
	return c.Requests.Decide(ctx, requestID, models.DecisionRejected)
}

// PublishAnnouncement posts a host broadcast and folds the created entry
// into the local feed. The feed's id dedup absorbs the socket echo that
// follows.
func (c *EventCoordinator) PublishAnnouncement(ctx context.Context, message string) (models.HostActivityEntry, error) {
	if strings.TrimSpace(message) == "" {
		return models.HostActivityEntry{}, ErrEmptyMessage
	}
	entry, err := c.api.PublishHostActivity(ctx, c.eventID, message)
	if err != nil {
		return models.HostActivityEntry{}, errors.Wrap(err, "publish announcement")
	}
	c.Feed.Append(ctx, entry)
	return entry, nil
}

// SendInvites dispatches a templated invite to the given recipients.
// An empty template falls back to DefaultInviteTemplate.
func (c *EventCoordinator) SendInvites(ctx context.Context, joinRequestIDs []string, template string) (models.DispatchSummary, error) {
	if strings.TrimSpace(template) == "" {
		template = DefaultInviteTemplate
	}
	templateFn := func(displayName string) string {
		return strings.ReplaceAll(template, templateNameToken, displayName)
	}
	return c.Invites.Dispatch(ctx, joinRequestIDs, templateFn)
}

// OnJoinRequestAccepted reacts to the realtime approval push for the
// viewer's own request: surface the notice, then resync everything. A
// role change from pending to guest touches every collection, so a full
// refresh is the simplest correct response.
func (c *EventCoordinator) OnJoinRequestAccepted(ctx context.Context, joinRequestID string) {
	c.notify.Notify(NoticeApproval, "You're in! The host approved your request 🎉")
	if err := c.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		utils.SafeWarn("refresh after approval failed: %v", err)
	}
}

// HostID is the event host's user id from the last snapshot.
func (c *EventCoordinator) HostID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hostID
}

// EventID returns the event this coordinator is bound to.
func (c *EventCoordinator) EventID() string {
	return c.eventID
}
