package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xAleksandar/tonight-app-sub000/models"
	"github.com/xAleksandar/tonight-app-sub000/services"
	"github.com/xAleksandar/tonight-app-sub000/utils"
)

// CoordinationHandler exposes the coordination engine to any UI or
// headless harness over plain JSON endpoints.
type CoordinationHandler struct {
	Coordinator *services.EventCoordinator
}

// Refresh re-pulls the authoritative event snapshot.
func (h *CoordinationHandler) Refresh(c *gin.Context) {
	if err := h.Coordinator.Refresh(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	h.State(c)
}

// State returns the engine's current view of the event.
func (h *CoordinationHandler) State(c *gin.Context) {
	feed := h.Coordinator.Feed
	c.JSON(http.StatusOK, gin.H{
		"event_id":      h.Coordinator.EventID(),
		"host_id":       h.Coordinator.HostID(),
		"attendees":     h.Coordinator.Requests.Attendees(),
		"join_requests": h.Coordinator.Requests.Pending(),
		"feed": gin.H{
			"entries":       feed.Entries(),
			"unseen_count":  feed.UnseenCount(),
			"divider_index": feed.DividerIndex(),
			"has_more":      feed.HasMore(),
			"cursor":        feed.Cursor(),
		},
		"candidates": h.Coordinator.Invites.Candidates(),
	})
}

// Decide applies an accept/reject decision to a pending join request.
func (h *CoordinationHandler) Decide(c *gin.Context) {
	requestID := c.Param("id")

	var req models.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attendee, err := h.Coordinator.Requests.Decide(c.Request.Context(), requestID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.LogDecision(requestID, req.Status)
	c.JSON(http.StatusOK, attendee)
}

// Feed returns the current feed page with cursor-derived metadata.
func (h *CoordinationHandler) Feed(c *gin.Context) {
	feed := h.Coordinator.Feed
	c.JSON(http.StatusOK, gin.H{
		"entries":       feed.Entries(),
		"unseen_count":  feed.UnseenCount(),
		"divider_index": feed.DividerIndex(),
		"has_more":      feed.HasMore(),
		"cursor":        feed.Cursor(),
	})
}

// LoadEarlier pages older broadcasts onto the feed tail.
func (h *CoordinationHandler) LoadEarlier(c *gin.Context) {
	page, err := h.Coordinator.Feed.LoadEarlier(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Acknowledge advances the viewer's read cursor.
func (h *CoordinationHandler) Acknowledge(c *gin.Context) {
	var req models.AcknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Coordinator.Feed.Acknowledge(c.Request.Context(), req.LastSeenAt); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cursor": h.Coordinator.Feed.Cursor()})
}

// ReturnToTop is the viewer's explicit jump back to the newest entries.
func (h *CoordinationHandler) ReturnToTop(c *gin.Context) {
	if err := h.Coordinator.Feed.ReturnToTop(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cursor": h.Coordinator.Feed.Cursor()})
}

// Viewport records whether the viewer is scrolled to the top, which
// decides whether new entries auto-acknowledge or raise a badge.
func (h *CoordinationHandler) Viewport(c *gin.Context) {
	var req models.ViewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.Coordinator.Feed.SetViewerAtTop(req.AtTop)
	c.JSON(http.StatusOK, gin.H{"at_top": req.AtTop})
}

// Announce publishes a host broadcast.
func (h *CoordinationHandler) Announce(c *gin.Context) {
	var req models.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.Coordinator.PublishAnnouncement(c.Request.Context(), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// Candidates lists every invite candidate with its live guardrail
// verdict.
func (h *CoordinationHandler) Candidates(c *gin.Context) {
	c.JSON(http.StatusOK, h.Coordinator.Invites.Candidates())
}

// SkippedHistory lists previously skipped recipients and whether they
// became re-selectable.
func (h *CoordinationHandler) SkippedHistory(c *gin.Context) {
	c.JSON(http.StatusOK, h.Coordinator.Invites.SkippedHistory())
}

// Select adds a candidate to the invite selection.
func (h *CoordinationHandler) Select(c *gin.Context) {
	if err := h.Coordinator.Invites.Select(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": true})
}

// Deselect removes a candidate from the invite selection.
func (h *CoordinationHandler) Deselect(c *gin.Context) {
	h.Coordinator.Invites.Deselect(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"selected": false})
}

// Override issues an explicit re-invite confirmation for a recipient
// already invited to this event.
func (h *CoordinationHandler) Override(c *gin.Context) {
	token, err := h.Coordinator.Invites.IssueOverride(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"override_token": token})
}

// Dispatch sends a templated invite to the selected recipients.
func (h *CoordinationHandler) Dispatch(c *gin.Context) {
	var req models.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.Coordinator.SendInvites(c.Request.Context(), req.JoinRequestIDs, req.Template)
	if err != nil {
		if errors.Is(err, services.ErrNoEligibleRecipients) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "No eligible recipients",
				"skipped": summary.Skipped,
			})
			return
		}
		respondError(c, err)
		return
	}

	utils.LogDispatch(summary.BatchID, summary.SentCount, summary.SkippedCount, summary.FailedCount)
	c.JSON(http.StatusOK, summary)
}

// respondError maps engine errors onto HTTP statuses: precondition
// violations are client errors, anything from the network path is a bad
// gateway carrying the server's own text when available.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAlreadyDecided):
		c.JSON(http.StatusConflict, gin.H{"error": "Request already decided"})
	case errors.Is(err, services.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty"})
	case errors.Is(err, services.ErrNoEligibleRecipients):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No eligible recipients"})
	default:
		var apiErr *services.APIError
		if errors.As(err, &apiErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Message})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream request failed"})
	}
}
