package models

import (
	"time"
)

// Invite dispatch result statuses.
const (
	InviteSent   = "sent"
	InviteFailed = "failed"
)

// FriendInviteCandidate is a person the host can invite to the current
// event. LastInviteAt/NextInviteAvailableAt implement the global
// per-recipient cooldown; CurrentEventInviteAt is the per-event
// "already invited" lock.
type FriendInviteCandidate struct {
	JoinRequestID         string     `json:"join_request_id"`
	UserID                string     `json:"user_id"`
	DisplayName           string     `json:"display_name"`
	LastInviteAt          *time.Time `json:"last_invite_at,omitempty"`
	NextInviteAvailableAt *time.Time `json:"next_invite_available_at,omitempty"`
	CurrentEventInviteAt  *time.Time `json:"current_event_invite_at,omitempty"`
}

// InviteDispatchResult is the outcome for one attempted send in a batch.
type InviteDispatchResult struct {
	JoinRequestID string `json:"join_request_id"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
}

// BlockedRecipient is a candidate filtered out before sending, with a
// human-readable reason and whether an explicit override could unblock it.
type BlockedRecipient struct {
	JoinRequestID     string `json:"join_request_id"`
	DisplayName       string `json:"display_name"`
	Reason            string `json:"reason"`
	OverrideAvailable bool   `json:"override_available"`
}

// DispatchSummary aggregates one batch for display.
// SentCount + SkippedCount + FailedCount always equals the number of
// selected candidates.
type DispatchSummary struct {
	BatchID      string                 `json:"batch_id"`
	SentCount    int                    `json:"sent_count"`
	SkippedCount int                    `json:"skipped_count"`
	FailedCount  int                    `json:"failed_count"`
	Timestamp    time.Time              `json:"timestamp"`
	Results      []InviteDispatchResult `json:"results"`
	Skipped      []BlockedRecipient     `json:"skipped"`
}

type DispatchRequest struct {
	JoinRequestIDs []string `json:"join_request_ids" binding:"required"`
	Template       string   `json:"template"`
}
