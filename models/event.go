package models

import (
	"time"
)

// Attendee statuses. Transitions are one-way outcomes of join-request
// decisions: pending -> confirmed or pending -> waitlist.
const (
	AttendeeConfirmed = "confirmed"
	AttendeePending   = "pending"
	AttendeeWaitlist  = "waitlist"
)

// Join request decision values accepted by the API.
const (
	DecisionAccepted = "accepted"
	DecisionRejected = "rejected"
)

type JoinRequest struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	DisplayName   string    `json:"display_name"`
	Intro         string    `json:"intro,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
	MutualFriends int       `json:"mutual_friends,omitempty"`
}

type Attendee struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Status      string `json:"status"`
	Blurb       string `json:"blurb,omitempty"`
}

// EventSnapshot is the authoritative "event inside" state returned by
// GET /events/{id}/inside. The engine treats its own collections as a
// cache of this.
type EventSnapshot struct {
	EventID          string                  `json:"event_id"`
	HostID           string                  `json:"host_id"`
	Attendees        []Attendee              `json:"attendees"`
	JoinRequests     []JoinRequest           `json:"join_requests"`
	HostActivity     []HostActivityEntry     `json:"host_activity"`
	ReadCursor       *ReadCursor             `json:"read_cursor,omitempty"`
	InviteCandidates []FriendInviteCandidate `json:"invite_candidates"`
}

type DecisionRequest struct {
	Status string `json:"status" binding:"required,oneof=accepted rejected"`
}
