package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/xAleksandar/tonight-app-sub000/models"
)

// EventAPI is the REST collaborator behind the coordination engine. The
// server is the system of record; the engine only caches what these
// calls return.
type EventAPI interface {
	DecideJoinRequest(ctx context.Context, requestID, status string) (models.Attendee, error)
	SendMessage(ctx context.Context, joinRequestID, content string) error
	MarkThreadRead(ctx context.Context, joinRequestID string) error
	PublishHostActivity(ctx context.Context, eventID, message string) (models.HostActivityEntry, error)
	LoadHostActivity(ctx context.Context, eventID, before string) (models.FeedPage, error)
	AdvanceReadCursor(ctx context.Context, eventID string, lastSeenAt time.Time) error
	LogEventInvite(ctx context.Context, eventID, userID, sourceJoinRequestID string) (time.Time, error)
	EventSnapshot(ctx context.Context, eventID string) (models.EventSnapshot, error)
}

type APIClient struct {
	BaseURL      string
	SessionToken string
	Client       *http.Client
}

func NewAPIClient(baseURL, sessionToken string) *APIClient {
	return &APIClient{
		BaseURL:      baseURL,
		SessionToken: sessionToken,
		Client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *APIClient) do(ctx context.Context, method, path string, body interface{}, out interface{}, fallback string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.SessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.SessionToken)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp, fallback)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "decode response")
		}
	}
	return nil
}

// decodeAPIError reads the {"error": ...} convention; a missing or
// unreadable error field falls back to the caller's default message.
func decodeAPIError(resp *http.Response, fallback string) error {
	message := fallback
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		message = payload.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

func (c *APIClient) DecideJoinRequest(ctx context.Context, requestID, status string) (models.Attendee, error) {
	var attendee models.Attendee
	body := map[string]string{"status": status}
	err := c.do(ctx, http.MethodPatch, "/join-requests/"+url.PathEscape(requestID), body, &attendee, "Failed to decide join request")
	return attendee, err
}

func (c *APIClient) SendMessage(ctx context.Context, joinRequestID, content string) error {
	body := map[string]string{"content": content}
	return c.do(ctx, http.MethodPost, "/chat/"+url.PathEscape(joinRequestID)+"/messages", body, nil, "Failed to send message")
}

func (c *APIClient) MarkThreadRead(ctx context.Context, joinRequestID string) error {
	return c.do(ctx, http.MethodPost, "/chat/"+url.PathEscape(joinRequestID)+"/mark-read", nil, nil, "Failed to mark thread read")
}

func (c *APIClient) PublishHostActivity(ctx context.Context, eventID, message string) (models.HostActivityEntry, error) {
	var entry models.HostActivityEntry
	body := map[string]string{"message": message}
	err := c.do(ctx, http.MethodPost, "/events/"+url.PathEscape(eventID)+"/host-activity", body, &entry, "Failed to publish announcement")
	return entry, err
}

func (c *APIClient) LoadHostActivity(ctx context.Context, eventID, before string) (models.FeedPage, error) {
	var page models.FeedPage
	path := "/events/" + url.PathEscape(eventID) + "/host-activity"
	if before != "" {
		path += "?before=" + url.QueryEscape(before)
	}
	err := c.do(ctx, http.MethodGet, path, nil, &page, "Failed to load announcements")
	return page, err
}

func (c *APIClient) AdvanceReadCursor(ctx context.Context, eventID string, lastSeenAt time.Time) error {
	body := map[string]string{"lastSeenAt": lastSeenAt.UTC().Format(time.RFC3339Nano)}
	return c.do(ctx, http.MethodPatch, "/events/"+url.PathEscape(eventID)+"/host-activity", body, nil, "Failed to update read cursor")
}

func (c *APIClient) LogEventInvite(ctx context.Context, eventID, userID, sourceJoinRequestID string) (time.Time, error) {
	body := map[string]string{
		"userId":              userID,
		"sourceJoinRequestId": sourceJoinRequestID,
	}
	var logged struct {
		InvitedAt time.Time `json:"invited_at"`
	}
	err := c.do(ctx, http.MethodPost, "/events/"+url.PathEscape(eventID)+"/invite-logs", body, &logged, "Failed to record invite")
	return logged.InvitedAt, err
}

func (c *APIClient) EventSnapshot(ctx context.Context, eventID string) (models.EventSnapshot, error) {
	var snapshot models.EventSnapshot
	err := c.do(ctx, http.MethodGet, "/events/"+url.PathEscape(eventID)+"/inside", nil, &snapshot, "Failed to load event")
	return snapshot, err
}
