package handlers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
)

// WSHandler pushes engine notices (approval, unseen badge, dispatch
// summary, feed updates) to connected UI clients so they can render
// without polling. It implements services.Notifier.
type WSHandler struct {
	M       *melody.Melody
	eventID string
}

func NewWSHandler(eventID string) *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 1024 * 1024

	// Keep-Alive configuration (critical for cloud hosting)
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleDisconnect(func(s *melody.Session) {
		eventID, _ := s.Get("event_id")
		log.Printf("🔌 Client disconnected from event: %v", eventID)
	})

	m.HandleError(func(s *melody.Session, err error) {
		log.Printf("❌ WebSocket Error: %v", err)
	})

	return &WSHandler{M: m, eventID: eventID}
}

// HandleWS upgrades the request and tags the session with its event.
func (h *WSHandler) HandleWS(c *gin.Context) {
	eventID := c.Param("id")

	err := h.M.HandleRequest(c.Writer, c.Request)
	if err != nil {
		log.Printf("❌ Failed to upgrade websocket: %v", err)
		return
	}

	h.M.HandleConnect(func(s *melody.Session) {
		s.Set("event_id", eventID)
		log.Printf("✅ Client connected to event: %s", eventID)
	})
}

// Notify broadcasts an engine notice to every client watching this
// event.
func (h *WSHandler) Notify(kind, text string) {
	msg, err := json.Marshal(gin.H{"type": kind, "text": text})
	if err != nil {
		return
	}

	err = h.M.BroadcastFilter(msg, func(q *melody.Session) bool {
		id, exists := q.Get("event_id")
		return exists && id == h.eventID
	})

	if err != nil {
		log.Printf("⚠️ Error broadcasting to event %s: %v", h.eventID, err)
	}
}
