package services

import (
	"context"
	"sync"
	"time"

	"github.com/xAleksandar/tonight-app-sub000/models"
)

// fakeAPI implements EventAPI with overridable function fields. Nil
// fields succeed with zero values.
type fakeAPI struct {
	decideFunc   func(ctx context.Context, requestID, status string) (models.Attendee, error)
	sendFunc     func(ctx context.Context, joinRequestID, content string) error
	markReadFunc func(ctx context.Context, joinRequestID string) error
	publishFunc  func(ctx context.Context, eventID, message string) (models.HostActivityEntry, error)
	loadFunc     func(ctx context.Context, eventID, before string) (models.FeedPage, error)
	advanceFunc  func(ctx context.Context, eventID string, lastSeenAt time.Time) error
	logFunc      func(ctx context.Context, eventID, userID, sourceJoinRequestID string) (time.Time, error)
	snapshotFunc func(ctx context.Context, eventID string) (models.EventSnapshot, error)

	mu           sync.Mutex
	decideCalls  int
	sendCalls    []string
	markCalls    []string
	advanceCalls []time.Time
	logCalls     []string
	loadCalls    int
	snapCalls    int
}

func (f *fakeAPI) DecideJoinRequest(ctx context.Context, requestID, status string) (models.Attendee, error) {
	f.mu.Lock()
	f.decideCalls++
	f.mu.Unlock()
	if f.decideFunc != nil {
		return f.decideFunc(ctx, requestID, status)
	}
	return models.Attendee{}, nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, joinRequestID, content string) error {
	f.mu.Lock()
	f.sendCalls = append(f.sendCalls, joinRequestID)
	f.mu.Unlock()
	if f.sendFunc != nil {
		return f.sendFunc(ctx, joinRequestID, content)
	}
	return nil
}

func (f *fakeAPI) MarkThreadRead(ctx context.Context, joinRequestID string) error {
	f.mu.Lock()
	f.markCalls = append(f.markCalls, joinRequestID)
	f.mu.Unlock()
	if f.markReadFunc != nil {
		return f.markReadFunc(ctx, joinRequestID)
	}
	return nil
}

func (f *fakeAPI) PublishHostActivity(ctx context.Context, eventID, message string) (models.HostActivityEntry, error) {
	if f.publishFunc != nil {
		return f.publishFunc(ctx, eventID, message)
	}
	return models.HostActivityEntry{}, nil
}

func (f *fakeAPI) LoadHostActivity(ctx context.Context, eventID, before string) (models.FeedPage, error) {
	f.mu.Lock()
	f.loadCalls++
	f.mu.Unlock()
	if f.loadFunc != nil {
		return f.loadFunc(ctx, eventID, before)
	}
	return models.FeedPage{}, nil
}

func (f *fakeAPI) AdvanceReadCursor(ctx context.Context, eventID string, lastSeenAt time.Time) error {
	f.mu.Lock()
	f.advanceCalls = append(f.advanceCalls, lastSeenAt)
	f.mu.Unlock()
	if f.advanceFunc != nil {
		return f.advanceFunc(ctx, eventID, lastSeenAt)
	}
	return nil
}

func (f *fakeAPI) LogEventInvite(ctx context.Context, eventID, userID, sourceJoinRequestID string) (time.Time, error) {
	f.mu.Lock()
	f.logCalls = append(f.logCalls, sourceJoinRequestID)
	f.mu.Unlock()
	if f.logFunc != nil {
		return f.logFunc(ctx, eventID, userID, sourceJoinRequestID)
	}
	return time.Time{}, nil
}

func (f *fakeAPI) EventSnapshot(ctx context.Context, eventID string) (models.EventSnapshot, error) {
	f.mu.Lock()
	f.snapCalls++
	f.mu.Unlock()
	if f.snapshotFunc != nil {
		return f.snapshotFunc(ctx, eventID)
	}
	return models.EventSnapshot{}, nil
}

func (f *fakeAPI) advanceCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.advanceCalls)
}

func (f *fakeAPI) lastAdvance() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.advanceCalls) == 0 {
		return time.Time{}
	}
	return f.advanceCalls[len(f.advanceCalls)-1]
}

// recordingNotifier captures notices for assertions.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice
}

type notice struct {
	kind string
	text string
}

func (n *recordingNotifier) Notify(kind, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{kind: kind, text: text})
}

func (n *recordingNotifier) byKind(kind string) []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notice
	for _, x := range n.notices {
		if x.kind == kind {
			out = append(out, x)
		}
	}
	return out
}
