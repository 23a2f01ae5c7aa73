package services

import (
	"fmt"
	"time"

	"github.com/xAleksandar/tonight-app-sub000/models"
)

// InviteCooldown is how long a recipient stays uninvitable after any
// invite, and how long a re-invite override stays unavailable after an
// event invite.
const InviteCooldown = 15 * time.Minute

// IsCooldownActive reports whether the recipient's global cooldown is
// still running at now.
func IsCooldownActive(nextInviteAvailableAt *time.Time, now time.Time) bool {
	return nextInviteAvailableAt != nil && nextInviteAvailableAt.After(now)
}

// EventInviteLocked reports whether the recipient is locked for this
// event. An override token only unlocks when it matches the exact
// CurrentEventInviteAt it was issued against, so a newer invite log
// invalidates stale overrides automatically.
func EventInviteLocked(currentEventInviteAt, overrideToken *time.Time) bool {
	if currentEventInviteAt == nil {
		return false
	}
	return overrideToken == nil || !overrideToken.Equal(*currentEventInviteAt)
}

// EventInviteCooldownUntil is the instant the per-event re-invite
// confirmation becomes offerable.
func EventInviteCooldownUntil(currentEventInviteAt time.Time) time.Time {
	return currentEventInviteAt.Add(InviteCooldown)
}

// EventInviteCoolingDown reports whether the per-event cooldown after
// the last invite is still running.
func EventInviteCoolingDown(currentEventInviteAt *time.Time, now time.Time) bool {
	if currentEventInviteAt == nil {
		return false
	}
	return EventInviteCooldownUntil(*currentEventInviteAt).After(now)
}

// OverrideAvailable reports whether a re-invite is technically possible
// but needs explicit confirmation: the event lock holds and its cooldown
// has elapsed.
func OverrideAvailable(currentEventInviteAt, overrideToken *time.Time, now time.Time) bool {
	return EventInviteLocked(currentEventInviteAt, overrideToken) &&
		!EventInviteCoolingDown(currentEventInviteAt, now)
}

// Eligible reports whether the candidate passes both guardrails.
func Eligible(c models.FriendInviteCandidate, overrideToken *time.Time, now time.Time) bool {
	return !IsCooldownActive(c.NextInviteAvailableAt, now) &&
		!EventInviteLocked(c.CurrentEventInviteAt, overrideToken)
}

// BlockReason builds the human-readable reason shown for a blocked
// candidate. Guardrail violations are never silent.
func BlockReason(c models.FriendInviteCandidate, overrideToken *time.Time, now time.Time) string {
	if IsCooldownActive(c.NextInviteAvailableAt, now) {
		wait := c.NextInviteAvailableAt.Sub(now).Round(time.Minute)
		if wait < time.Minute {
			wait = time.Minute
		}
		return fmt.Sprintf("%s was invited recently, try again in %s", c.DisplayName, wait)
	}
	if EventInviteLocked(c.CurrentEventInviteAt, overrideToken) {
		return fmt.Sprintf("%s already got an invite to this event", c.DisplayName)
	}
	return ""
}

// StampGuardrail records an invite against the candidate: LastInviteAt
// from the source timestamp (or now) and the next availability one
// cooldown later.
func StampGuardrail(c *models.FriendInviteCandidate, sourceTimestamp *time.Time, now time.Time) {
	stamp := now
	if sourceTimestamp != nil {
		stamp = *sourceTimestamp
	}
	next := stamp.Add(InviteCooldown)
	c.LastInviteAt = &stamp
	c.NextInviteAvailableAt = &next
}
