package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/xAleksandar/tonight-app-sub000/models"
	"github.com/xAleksandar/tonight-app-sub000/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512 * 1024

	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

// FeedSink receives host broadcasts reconciled off the socket. The
// feed's id dedup makes redelivery and REST echo harmless.
type FeedSink interface {
	Append(ctx context.Context, entry models.HostActivityEntry) bool
}

// ApprovalSink reacts to the viewer's own join request being accepted.
type ApprovalSink interface {
	OnJoinRequestAccepted(ctx context.Context, joinRequestID string)
	HostID() string
}

// Options configure the bridge. The room is the viewer's own join
// request thread for guests, or the event itself for the host.
type Options struct {
	SocketURL     string
	SessionToken  string
	SessionSecret string
	EventID       string
	JoinRequestID string
}

// Bridge is the websocket client that reconciles pushed events into the
// engine. It stays disabled without a live session token and a room.
type Bridge struct {
	opts      Options
	feed      FeedSink
	approvals ApprovalSink

	mu       sync.Mutex
	conn     *websocket.Conn
	lastRoom string
}

func NewBridge(opts Options, feed FeedSink, approvals ApprovalSink) *Bridge {
	return &Bridge{opts: opts, feed: feed, approvals: approvals}
}

// Enabled reports whether the bridge has everything it needs to open a
// socket: a socket URL, an unexpired session token and a room.
func (b *Bridge) Enabled() bool {
	if b.opts.SocketURL == "" || b.Room() == "" {
		return false
	}
	return sessionTokenValid(b.opts.SessionToken, b.opts.SessionSecret, time.Now())
}

// Room is the channel this viewer subscribes to.
func (b *Bridge) Room() string {
	if b.opts.JoinRequestID != "" {
		return b.opts.JoinRequestID
	}
	return b.opts.EventID
}

// Run connects and reconnects until ctx is done. Each (re)connect
// re-joins the room; joining an already-joined room is a server-side
// no-op.
func (b *Bridge) Run(ctx context.Context) {
	if !b.Enabled() {
		utils.LogSocket("disabled", b.Room())
		return
	}

	backoff := reconnectMin
	for {
		if ctx.Err() != nil {
			return
		}

		err := b.connectAndRead(ctx)
		if ctx.Err() != nil {
			return
		}
		utils.SafeWarn("socket disconnected: %v, retrying in %s", err, backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (b *Bridge) connectAndRead(ctx context.Context) error {
	header := http.Header{}
	if b.opts.SessionToken != "" {
		header.Set("Authorization", "Bearer "+b.opts.SessionToken)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, b.opts.SocketURL, header)
	if err != nil {
		return errors.Wrap(err, "dial socket")
	}
	defer conn.Close()

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()

	if err := b.joinRoom(conn); err != nil {
		return err
	}
	utils.LogSocket("joined", b.Room())

	stopPing := make(chan struct{})
	defer close(stopPing)
	go b.pingLoop(conn, stopPing)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				utils.SafeError("socket read error: %v", err)
			}
			return err
		}
		b.HandleEnvelope(ctx, message)
	}
}

func (b *Bridge) joinRoom(conn *websocket.Conn) error {
	join := map[string]string{"action": "join", "room": b.Room()}
	data, _ := json.Marshal(join)

	b.mu.Lock()
	defer b.mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Wrap(err, "join room")
	}
	b.lastRoom = b.Room()
	return nil
}

func (b *Bridge) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			b.mu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			b.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type hostMessagePayload struct {
	ID            string    `json:"id"`
	JoinRequestID string    `json:"join_request_id"`
	SenderID      string    `json:"sender_id"`
	SenderName    string    `json:"sender_name"`
	Content       string    `json:"content"`
	SentAt        time.Time `json:"sent_at"`
}

type statusChangedPayload struct {
	JoinRequestID string `json:"join_request_id"`
	Status        string `json:"status"`
}

// HandleEnvelope routes one raw socket frame. Unknown events are
// ignored; the transport is shared with other app features.
func (b *Bridge) HandleEnvelope(ctx context.Context, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		utils.SafeDebug("unparseable socket frame: %v", err)
		return
	}

	switch env.Event {
	case "message":
		b.handleHostMessage(ctx, env.Payload)
	case "joinRequestStatusChanged":
		b.handleStatusChanged(ctx, env.Payload)
	}
}

// handleHostMessage guards against cross-room leakage at the
// application layer: only messages for the viewer's own thread, sent by
// the event host, reach the feed.
func (b *Bridge) handleHostMessage(ctx context.Context, payload json.RawMessage) {
	var msg hostMessagePayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		utils.SafeDebug("bad host message payload: %v", err)
		return
	}

	if b.opts.JoinRequestID != "" && msg.JoinRequestID != b.opts.JoinRequestID {
		return
	}
	if hostID := b.approvals.HostID(); hostID != "" && msg.SenderID != hostID {
		return
	}

	entry := models.HostActivityEntry{
		ID:         msg.ID,
		Message:    msg.Content,
		PostedAt:   msg.SentAt,
		AuthorName: msg.SenderName,
	}
	if b.feed.Append(ctx, entry) {
		utils.LogFeed("pushed", entry.ID)
	}
}

func (b *Bridge) handleStatusChanged(ctx context.Context, payload json.RawMessage) {
	var change statusChangedPayload
	if err := json.Unmarshal(payload, &change); err != nil {
		utils.SafeDebug("bad status payload: %v", err)
		return
	}

	if change.JoinRequestID != b.opts.JoinRequestID {
		return
	}
	if change.Status != models.DecisionAccepted {
		return
	}
	b.approvals.OnJoinRequestAccepted(ctx, change.JoinRequestID)
}

// sessionTokenValid checks the session JWT. With a secret the signature
// is verified; without one only the expiry claim is checked, which is
// all a client can do.
func sessionTokenValid(token, secret string, now time.Time) bool {
	if token == "" {
		return false
	}

	if secret != "" {
		parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		return err == nil && parsed.Valid
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false
	}
	return exp == nil || exp.After(now)
}
