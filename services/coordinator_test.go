package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xAleksandar/tonight-app-sub000/models"
)

func TestRefreshPopulatesEveryCollection(t *testing.T) {
	cursor := models.ReadCursor{LastSeenAt: baseTime}
	api := &fakeAPI{
		snapshotFunc: func(ctx context.Context, eventID string) (models.EventSnapshot, error) {
			return models.EventSnapshot{
				EventID:      eventID,
				HostID:       "host-1",
				Attendees:    []models.Attendee{{ID: "u1", Status: models.AttendeeConfirmed}},
				JoinRequests: []models.JoinRequest{pendingRequest("jr-1", "u2")},
				HostActivity: []models.HostActivityEntry{entry("m1", baseTime)},
				ReadCursor:   &cursor,
				InviteCandidates: []models.FriendInviteCandidate{
					candidate("jr-1", "Mira"),
				},
			}, nil
		},
	}
	c := NewEventCoordinator(api, "ev-1", nil)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if c.HostID() != "host-1" {
		t.Fatalf("expected host-1, got %q", c.HostID())
	}
	if got := len(c.Requests.Pending()); got != 1 {
		t.Fatalf("expected 1 pending request, got %d", got)
	}
	if got := len(c.Requests.Attendees()); got != 1 {
		t.Fatalf("expected 1 attendee, got %d", got)
	}
	if got := len(c.Feed.Entries()); got != 1 {
		t.Fatalf("expected 1 feed entry, got %d", got)
	}
	if got := len(c.Invites.Candidates()); got != 1 {
		t.Fatalf("expected 1 candidate, got %d", got)
	}
}

func TestRefreshSupersedesInFlightFetch(t *testing.T) {
	firstStarted := make(chan struct{})
	api := &fakeAPI{}
	api.snapshotFunc = func(ctx context.Context, eventID string) (models.EventSnapshot, error) {
		api.mu.Lock()
		call := api.snapCalls
		api.mu.Unlock()
		if call == 1 {
			close(firstStarted)
			// Stale fetch parks until its context is cancelled by the
			// superseding refresh.
			<-ctx.Done()
			return models.EventSnapshot{}, ctx.Err()
		}
		return models.EventSnapshot{HostID: "fresh-host"}, nil
	}
	c := NewEventCoordinator(api, "ev-1", nil)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- c.Refresh(context.Background())
	}()

	<-firstStarted
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("superseding refresh: %v", err)
	}

	select {
	case err := <-firstDone:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("stale refresh should report cancellation, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stale refresh never returned")
	}

	if c.HostID() != "fresh-host" {
		t.Fatalf("fresher state must win, got %q", c.HostID())
	}
}

func TestPublishAnnouncementFoldsIntoFeedAndAbsorbsEcho(t *testing.T) {
	posted := entry("m9", baseTime)
	api := &fakeAPI{
		publishFunc: func(ctx context.Context, eventID, message string) (models.HostActivityEntry, error) {
			return posted, nil
		},
	}
	c := NewEventCoordinator(api, "ev-1", nil)

	got, err := c.PublishAnnouncement(context.Background(), "doors open at ten")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got.ID != "m9" {
		t.Fatalf("expected created entry, got %+v", got)
	}
	if len(c.Feed.Entries()) != 1 {
		t.Fatal("published entry must land in the local feed")
	}

	// The socket echoes the same message back; dedup absorbs it.
	if c.Feed.Append(context.Background(), posted) {
		t.Fatal("socket echo must be a no-op")
	}
	if len(c.Feed.Entries()) != 1 {
		t.Fatal("echo must not double-insert")
	}
}

func TestPublishAnnouncementRejectsBlankMessage(t *testing.T) {
	api := &fakeAPI{}
	c := NewEventCoordinator(api, "ev-1", nil)

	_, err := c.PublishAnnouncement(context.Background(), "   ")
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestSendInvitesFillsTemplate(t *testing.T) {
	var sent []string
	api := &fakeAPI{
		sendFunc: func(ctx context.Context, joinRequestID, content string) error {
			sent = append(sent, content)
			return nil
		},
	}
	c := NewEventCoordinator(api, "ev-1", nil)
	c.Invites.Reset([]models.FriendInviteCandidate{candidate("jr-1", "Mira")})

	summary, err := c.SendInvites(context.Background(), []string{"jr-1"}, "See you there, {name}?")
	if err != nil {
		t.Fatalf("send invites: %v", err)
	}
	if summary.SentCount != 1 {
		t.Fatalf("expected one send, got %+v", summary)
	}
	if len(sent) != 1 || sent[0] != "See you there, Mira?" {
		t.Fatalf("template not filled: %v", sent)
	}
}

func TestSendInvitesDefaultsTemplate(t *testing.T) {
	var sent []string
	api := &fakeAPI{
		sendFunc: func(ctx context.Context, joinRequestID, content string) error {
			sent = append(sent, content)
			return nil
		},
	}
	c := NewEventCoordinator(api, "ev-1", nil)
	c.Invites.Reset([]models.FriendInviteCandidate{candidate("jr-1", "Mira")})

	if _, err := c.SendInvites(context.Background(), []string{"jr-1"}, "  "); err != nil {
		t.Fatalf("send invites: %v", err)
	}
	if len(sent) != 1 || sent[0] != "Hey Mira! Come join us tonight 🎉" {
		t.Fatalf("expected default template, got %v", sent)
	}
}

func TestOnJoinRequestAcceptedNotifiesAndRefreshes(t *testing.T) {
	api := &fakeAPI{
		snapshotFunc: func(ctx context.Context, eventID string) (models.EventSnapshot, error) {
			return models.EventSnapshot{HostID: "host-1"}, nil
		},
	}
	notify := &recordingNotifier{}
	c := NewEventCoordinator(api, "ev-1", notify)

	c.OnJoinRequestAccepted(context.Background(), "jr-1")

	if len(notify.byKind(NoticeApproval)) != 1 {
		t.Fatal("approval push should surface a notice")
	}
	if api.snapCalls != 1 {
		t.Fatalf("approval should trigger a full refresh, got %d snapshot calls", api.snapCalls)
	}
}
