package services

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/xAleksandar/tonight-app-sub000/models"
)

// Blurb shown on a freshly confirmed attendee.
const confirmedBlurb = "Going 🎉"

// JoinRequestWorkflow owns the pending set and the attendee roster.
// Every join request gets exactly one terminal transition: accepted
// confirms the guest, rejected moves them to the waitlist. Nothing is
// ever deleted from the roster.
type JoinRequestWorkflow struct {
	api EventAPI

	mu        sync.Mutex
	pending   map[string]models.JoinRequest
	inFlight  map[string]bool
	attendees map[string]models.Attendee
}

func NewJoinRequestWorkflow(api EventAPI) *JoinRequestWorkflow {
	return &JoinRequestWorkflow{
		api:       api,
		pending:   make(map[string]models.JoinRequest),
		inFlight:  make(map[string]bool),
		attendees: make(map[string]models.Attendee),
	}
}

// Reset replaces the cached state with an authoritative snapshot.
func (w *JoinRequestWorkflow) Reset(requests []models.JoinRequest, attendees []models.Attendee) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = make(map[string]models.JoinRequest, len(requests))
	for _, r := range requests {
		w.pending[r.ID] = r
	}
	w.attendees = make(map[string]models.Attendee, len(attendees))
	for _, a := range attendees {
		w.attendees[a.ID] = a
	}
}

// Decide applies a terminal decision to a pending join request. The
// pending set is only mutated after the server confirms, so a network
// failure leaves the request retryable. A second decision on the same
// id, including one racing an in-flight call, fails with
// ErrAlreadyDecided.
func (w *JoinRequestWorkflow) Decide(ctx context.Context, requestID, status string) (models.Attendee, error) {
	if status != models.DecisionAccepted && status != models.DecisionRejected {
		return models.Attendee{}, errors.Errorf("unknown decision %q", status)
	}

	w.mu.Lock()
	req, ok := w.pending[requestID]
	if !ok || w.inFlight[requestID] {
		w.mu.Unlock()
		return models.Attendee{}, ErrAlreadyDecided
	}
	w.inFlight[requestID] = true
	w.mu.Unlock()

	confirmed, err := w.api.DecideJoinRequest(ctx, requestID, status)

	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, requestID)

	if err != nil {
		// No optimistic removal: the request stays pending for retry.
		return models.Attendee{}, errors.Wrap(err, "decide join request")
	}

	delete(w.pending, requestID)

	attendee := w.attendees[req.UserID]
	if confirmed.ID != "" {
		attendee = confirmed
	}
	attendee.ID = req.UserID
	if attendee.DisplayName == "" {
		attendee.DisplayName = req.DisplayName
	}
	switch status {
	case models.DecisionAccepted:
		attendee.Status = models.AttendeeConfirmed
		if attendee.Blurb == "" {
			attendee.Blurb = confirmedBlurb
		}
	case models.DecisionRejected:
		attendee.Status = models.AttendeeWaitlist
	}
	w.attendees[req.UserID] = attendee

	return attendee, nil
}

// Pending returns pending requests oldest-first.
func (w *JoinRequestWorkflow) Pending() []models.JoinRequest {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]models.JoinRequest, 0, len(w.pending))
	for _, r := range w.pending {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out
}

// Attendees returns the roster with confirmed guests first.
func (w *JoinRequestWorkflow) Attendees() []models.Attendee {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]models.Attendee, 0, len(w.attendees))
	for _, a := range w.attendees {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return statusRank(out[i].Status) < statusRank(out[j].Status)
		}
		return out[i].DisplayName < out[j].DisplayName
	})
	return out
}

func statusRank(status string) int {
	switch status {
	case models.AttendeeConfirmed:
		return 0
	case models.AttendeePending:
		return 1
	default:
		return 2
	}
}
