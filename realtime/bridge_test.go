package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xAleksandar/tonight-app-sub000/models"
)

type fakeFeed struct {
	entries []models.HostActivityEntry
	seen    map[string]bool
}

func (f *fakeFeed) Append(ctx context.Context, entry models.HostActivityEntry) bool {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[entry.ID] {
		return false
	}
	f.seen[entry.ID] = true
	f.entries = append(f.entries, entry)
	return true
}

type fakeApprovals struct {
	hostID   string
	accepted []string
}

func (f *fakeApprovals) OnJoinRequestAccepted(ctx context.Context, joinRequestID string) {
	f.accepted = append(f.accepted, joinRequestID)
}

func (f *fakeApprovals) HostID() string { return f.hostID }

func signedToken(t *testing.T, secret string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func guestBridge(feed *fakeFeed, approvals *fakeApprovals) *Bridge {
	return NewBridge(Options{
		SocketURL:     "ws://example.test/socket",
		SessionToken:  "tok",
		EventID:       "ev-1",
		JoinRequestID: "jr-1",
	}, feed, approvals)
}

func TestHostMessageReachesFeed(t *testing.T) {
	feed := &fakeFeed{}
	approvals := &fakeApprovals{hostID: "host-1"}
	b := guestBridge(feed, approvals)

	frame := []byte(`{"event":"message","payload":{"id":"m1","join_request_id":"jr-1","sender_id":"host-1","sender_name":"Ana","content":"doors at ten","sent_at":"2026-08-21T22:00:00Z"}}`)
	b.HandleEnvelope(context.Background(), frame)

	if len(feed.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(feed.entries))
	}
	got := feed.entries[0]
	if got.ID != "m1" || got.Message != "doors at ten" || got.AuthorName != "Ana" {
		t.Fatalf("unexpected entry %+v", got)
	}
}

func TestCrossRoomMessageDropped(t *testing.T) {
	feed := &fakeFeed{}
	b := guestBridge(feed, &fakeApprovals{hostID: "host-1"})

	frame := []byte(`{"event":"message","payload":{"id":"m1","join_request_id":"jr-OTHER","sender_id":"host-1","content":"leak","sent_at":"2026-08-21T22:00:00Z"}}`)
	b.HandleEnvelope(context.Background(), frame)

	if len(feed.entries) != 0 {
		t.Fatal("message for a different thread must be dropped")
	}
}

func TestNonHostSenderDropped(t *testing.T) {
	feed := &fakeFeed{}
	b := guestBridge(feed, &fakeApprovals{hostID: "host-1"})

	frame := []byte(`{"event":"message","payload":{"id":"m1","join_request_id":"jr-1","sender_id":"intruder","content":"hi","sent_at":"2026-08-21T22:00:00Z"}}`)
	b.HandleEnvelope(context.Background(), frame)

	if len(feed.entries) != 0 {
		t.Fatal("non-host sender must be dropped")
	}
}

func TestRedeliveredMessageDeduplicated(t *testing.T) {
	feed := &fakeFeed{}
	b := guestBridge(feed, &fakeApprovals{hostID: "host-1"})

	frame := []byte(`{"event":"message","payload":{"id":"m1","join_request_id":"jr-1","sender_id":"host-1","content":"hi","sent_at":"2026-08-21T22:00:00Z"}}`)
	b.HandleEnvelope(context.Background(), frame)
	b.HandleEnvelope(context.Background(), frame)

	if len(feed.entries) != 1 {
		t.Fatalf("redelivery must not double-insert, got %d", len(feed.entries))
	}
}

func TestOwnApprovalTriggersCallback(t *testing.T) {
	approvals := &fakeApprovals{hostID: "host-1"}
	b := guestBridge(&fakeFeed{}, approvals)

	b.HandleEnvelope(context.Background(), []byte(`{"event":"joinRequestStatusChanged","payload":{"join_request_id":"jr-1","status":"accepted"}}`))
	if len(approvals.accepted) != 1 || approvals.accepted[0] != "jr-1" {
		t.Fatalf("expected approval callback, got %v", approvals.accepted)
	}

	// Someone else's approval, and our own rejection, are not ours to act on.
	b.HandleEnvelope(context.Background(), []byte(`{"event":"joinRequestStatusChanged","payload":{"join_request_id":"jr-2","status":"accepted"}}`))
	b.HandleEnvelope(context.Background(), []byte(`{"event":"joinRequestStatusChanged","payload":{"join_request_id":"jr-1","status":"rejected"}}`))
	if len(approvals.accepted) != 1 {
		t.Fatalf("unexpected extra callbacks: %v", approvals.accepted)
	}
}

func TestUnknownAndMalformedFramesIgnored(t *testing.T) {
	feed := &fakeFeed{}
	approvals := &fakeApprovals{}
	b := guestBridge(feed, approvals)

	b.HandleEnvelope(context.Background(), []byte(`{"event":"typing","payload":{}}`))
	b.HandleEnvelope(context.Background(), []byte(`not json`))

	if len(feed.entries) != 0 || len(approvals.accepted) != 0 {
		t.Fatal("unknown frames must have no effect")
	}
}

func TestEnabledRequiresTokenAndRoom(t *testing.T) {
	secret := "topsecret"
	valid := signedToken(t, secret, time.Now().Add(time.Hour))
	expired := signedToken(t, secret, time.Now().Add(-time.Hour))

	cases := []struct {
		name string
		opts Options
		want bool
	}{
		{"valid guest", Options{SocketURL: "ws://x", SessionToken: valid, SessionSecret: secret, JoinRequestID: "jr-1"}, true},
		{"valid host room", Options{SocketURL: "ws://x", SessionToken: valid, SessionSecret: secret, EventID: "ev-1"}, true},
		{"expired token", Options{SocketURL: "ws://x", SessionToken: expired, SessionSecret: secret, JoinRequestID: "jr-1"}, false},
		{"missing token", Options{SocketURL: "ws://x", JoinRequestID: "jr-1"}, false},
		{"missing room", Options{SocketURL: "ws://x", SessionToken: valid, SessionSecret: secret}, false},
		{"missing socket url", Options{SessionToken: valid, SessionSecret: secret, JoinRequestID: "jr-1"}, false},
		{"unverified expiry check", Options{SocketURL: "ws://x", SessionToken: expired, JoinRequestID: "jr-1"}, false},
		{"unverified valid", Options{SocketURL: "ws://x", SessionToken: valid, JoinRequestID: "jr-1"}, true},
	}

	for _, tc := range cases {
		b := NewBridge(tc.opts, &fakeFeed{}, &fakeApprovals{})
		if got := b.Enabled(); got != tc.want {
			t.Fatalf("%s: expected Enabled=%v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestGuestRoomPrefersJoinRequest(t *testing.T) {
	guest := NewBridge(Options{EventID: "ev-1", JoinRequestID: "jr-1"}, &fakeFeed{}, &fakeApprovals{})
	if guest.Room() != "jr-1" {
		t.Fatalf("guest room should be the join request thread, got %q", guest.Room())
	}
	host := NewBridge(Options{EventID: "ev-1"}, &fakeFeed{}, &fakeApprovals{})
	if host.Room() != "ev-1" {
		t.Fatalf("host room should be the event, got %q", host.Room())
	}
}
