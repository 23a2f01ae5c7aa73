package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/xAleksandar/tonight-app-sub000/models"
	"github.com/xAleksandar/tonight-app-sub000/utils"
)

// CandidateStatus is a candidate with its guardrail verdict computed for
// the current instant. The UI re-renders from this, so skipped people
// become selectable again the moment their cooldown lifts.
type CandidateStatus struct {
	models.FriendInviteCandidate
	Selected          bool   `json:"selected"`
	Eligible          bool   `json:"eligible"`
	Reason            string `json:"reason,omitempty"`
	OverrideAvailable bool   `json:"override_available"`
}

// BatchInviteDispatcher sends templated friend invites to a selected set
// of recipients, one outcome per recipient. Guardrails are enforced
// before any network call; one recipient's failure never blocks the
// rest.
type BatchInviteDispatcher struct {
	api     EventAPI
	eventID string
	notify  Notifier
	clock   func() time.Time

	mu         sync.Mutex
	candidates map[string]*models.FriendInviteCandidate
	order      []string
	selection  map[string]bool
	overrides  map[string]time.Time
	skipped    []models.BlockedRecipient
}

func NewBatchInviteDispatcher(api EventAPI, eventID string, notify Notifier) *BatchInviteDispatcher {
	if notify == nil {
		notify = NopNotifier{}
	}
	return &BatchInviteDispatcher{
		api:        api,
		eventID:    eventID,
		notify:     notify,
		clock:      time.Now,
		candidates: make(map[string]*models.FriendInviteCandidate),
		selection:  make(map[string]bool),
		overrides:  make(map[string]time.Time),
	}
}

// Reset reconciles the candidate list against an authoritative snapshot.
// Anyone whose CurrentEventInviteAt moved since we last looked had a new
// invite logged elsewhere: their stale override is cleared and they drop
// out of the current selection.
func (d *BatchInviteDispatcher) Reset(fresh []models.FriendInviteCandidate) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := make(map[string]*models.FriendInviteCandidate, len(fresh))
	order := make([]string, 0, len(fresh))
	for i := range fresh {
		c := fresh[i]
		if prev, ok := d.candidates[c.JoinRequestID]; ok {
			if !sameStamp(prev.CurrentEventInviteAt, c.CurrentEventInviteAt) {
				delete(d.overrides, c.JoinRequestID)
				delete(d.selection, c.JoinRequestID)
			}
		}
		next[c.JoinRequestID] = &c
		order = append(order, c.JoinRequestID)
	}
	for id := range d.selection {
		if _, ok := next[id]; !ok {
			delete(d.selection, id)
			delete(d.overrides, id)
		}
	}
	d.candidates = next
	d.order = order
}

func sameStamp(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// Select adds a candidate to the current selection.
func (d *BatchInviteDispatcher) Select(joinRequestID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.candidates[joinRequestID]; !ok {
		return errors.Errorf("unknown candidate %q", joinRequestID)
	}
	d.selection[joinRequestID] = true
	return nil
}

// Deselect removes a candidate from the current selection.
func (d *BatchInviteDispatcher) Deselect(joinRequestID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.selection, joinRequestID)
}

// IssueOverride lets the host explicitly confirm a re-invite for a
// recipient who already got one for this event. The token is bound to
// the invite stamp it was issued against; a newer invite invalidates
// it. Issuing twice is last-write-wins.
func (d *BatchInviteDispatcher) IssueOverride(joinRequestID string) (time.Time, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.candidates[joinRequestID]
	if !ok {
		return time.Time{}, errors.Errorf("unknown candidate %q", joinRequestID)
	}
	if c.CurrentEventInviteAt == nil {
		return time.Time{}, errors.Errorf("candidate %q is not locked for this event", joinRequestID)
	}
	if EventInviteCoolingDown(c.CurrentEventInviteAt, d.clock()) {
		return time.Time{}, errors.Errorf("re-invite for %q is still cooling down", c.DisplayName)
	}
	token := *c.CurrentEventInviteAt
	d.overrides[joinRequestID] = token
	return token, nil
}

// Candidates returns every known candidate with its live guardrail
// verdict, in snapshot order.
func (d *BatchInviteDispatcher) Candidates() []CandidateStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock()
	out := make([]CandidateStatus, 0, len(d.order))
	for _, id := range d.order {
		c := d.candidates[id]
		token := d.overrideToken(id)
		status := CandidateStatus{
			FriendInviteCandidate: *c,
			Selected:              d.selection[id],
			Eligible:              Eligible(*c, token, now),
			OverrideAvailable:     OverrideAvailable(c.CurrentEventInviteAt, token, now),
		}
		if !status.Eligible {
			status.Reason = BlockReason(*c, token, now)
		}
		out = append(out, status)
	}
	return out
}

func (d *BatchInviteDispatcher) overrideToken(joinRequestID string) *time.Time {
	if t, ok := d.overrides[joinRequestID]; ok {
		return &t
	}
	return nil
}

// Dispatch partitions the selected candidates through the guardrails and
// sends a templated invite to each eligible one, in order. Sends are
// independent: a failed recipient is reported in its own result and the
// batch keeps going. Returns ErrNoEligibleRecipients before issuing any
// network call when everyone is blocked.
func (d *BatchInviteDispatcher) Dispatch(ctx context.Context, selected []string, templateFn func(displayName string) string) (models.DispatchSummary, error) {
	d.mu.Lock()
	now := d.clock()

	var eligible []*models.FriendInviteCandidate
	var blocked []models.BlockedRecipient
	for _, id := range selected {
		c, ok := d.candidates[id]
		if !ok {
			d.mu.Unlock()
			return models.DispatchSummary{}, errors.Errorf("unknown candidate %q", id)
		}
		token := d.overrideToken(id)
		if Eligible(*c, token, now) {
			eligible = append(eligible, c)
			continue
		}
		blocked = append(blocked, models.BlockedRecipient{
			JoinRequestID:     c.JoinRequestID,
			DisplayName:       c.DisplayName,
			Reason:            BlockReason(*c, token, now),
			OverrideAvailable: OverrideAvailable(c.CurrentEventInviteAt, token, now),
		})
	}
	d.skipped = append(d.skipped, blocked...)
	d.mu.Unlock()

	summary := models.DispatchSummary{
		BatchID:      uuid.New().String(),
		SkippedCount: len(blocked),
		Timestamp:    now,
		Skipped:      blocked,
	}

	if len(eligible) == 0 {
		return summary, ErrNoEligibleRecipients
	}

	for _, c := range eligible {
		result := models.InviteDispatchResult{JoinRequestID: c.JoinRequestID}

		message := templateFn(c.DisplayName)
		if strings.TrimSpace(message) == "" {
			result.Status = models.InviteFailed
			result.Error = ErrEmptyMessage.Error()
			summary.FailedCount++
			summary.Results = append(summary.Results, result)
			continue
		}

		if err := d.api.SendMessage(ctx, c.JoinRequestID, message); err != nil {
			result.Status = models.InviteFailed
			result.Error = userFacingError(err, "Failed to send invite")
			summary.FailedCount++
			summary.Results = append(summary.Results, result)
			continue
		}

		// The invite itself succeeded; everything past this point is
		// best-effort bookkeeping.
		if err := d.api.MarkThreadRead(ctx, c.JoinRequestID); err != nil {
			utils.SafeWarn("mark-read failed for %s: %v", c.JoinRequestID, err)
		}
		d.recordInvite(ctx, c)

		result.Status = models.InviteSent
		summary.SentCount++
		summary.Results = append(summary.Results, result)
	}

	d.notify.Notify(NoticeDispatchSummary, fmt.Sprintf("%d sent, %d skipped, %d failed",
		summary.SentCount, summary.SkippedCount, summary.FailedCount))
	return summary, nil
}

// recordInvite logs the send server-side and stamps the local
// guardrails. A failed invite-log only costs us the server timestamp;
// the cooldown still starts from the local clock.
func (d *BatchInviteDispatcher) recordInvite(ctx context.Context, c *models.FriendInviteCandidate) {
	var source *time.Time
	invitedAt, err := d.api.LogEventInvite(ctx, d.eventID, c.UserID, c.JoinRequestID)
	if err != nil {
		utils.SafeWarn("invite log failed for %s: %v", c.JoinRequestID, err)
	} else if !invitedAt.IsZero() {
		source = &invitedAt
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock()
	StampGuardrail(c, source, now)
	c.CurrentEventInviteAt = c.LastInviteAt

	// The fresh invite consumed any override and the cached selection.
	delete(d.overrides, c.JoinRequestID)
	delete(d.selection, c.JoinRequestID)
}

// SkippedHistory returns everyone ever skipped by a dispatch, with each
// entry's re-selectability recomputed for the current instant.
func (d *BatchInviteDispatcher) SkippedHistory() []CandidateStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock()
	out := make([]CandidateStatus, 0, len(d.skipped))
	for _, b := range d.skipped {
		c, ok := d.candidates[b.JoinRequestID]
		if !ok {
			continue
		}
		token := d.overrideToken(b.JoinRequestID)
		status := CandidateStatus{
			FriendInviteCandidate: *c,
			Eligible:              Eligible(*c, token, now),
			Reason:                b.Reason,
			OverrideAvailable:     OverrideAvailable(c.CurrentEventInviteAt, token, now),
		}
		out = append(out, status)
	}
	return out
}

// userFacingError prefers the server's error text for display.
func userFacingError(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return fallback
}
