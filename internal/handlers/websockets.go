package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms

	envelopeMessage = "message"
	envelopeReady   = "ready"
)

// Envelope used for WebSocket frames.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict to configured origins once a CORS allow-list exists
}

// @Summary      Inbox stream
// @Description  Upgrades to a websocket and pushes messages received by the caller as {type:"message", data}. Optional after=<id> resumes from a message id.
// @Tags         messages
// @Param        _token       query  string  false  "Token, when no Authorization header is sent"
// @Param        after        query  int     false  "Only messages with a greater id"
// @Param        interval     query  string  false  "Poll interval, e.g. 500ms (max 10s)"
// @Param        interval_ms  query  int     false  "Poll interval in milliseconds"
// @Router       /ws/inbox [get]
// @Security     BearerAuth
func (h *Handler) wsInbox(c *gin.Context) {
	username := identity(c)
	interval := h.parseInterval(c)
	cursor, _ := strconv.ParseInt(c.Query("after"), 10, 64)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reader goroutine to handle control frames and detect disconnects.
	done := make(chan struct{})
	go h.startReader(conn, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	ctx := c.Request.Context()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(wsEnvelope{Type: envelopeReady, Data: gin.H{"username": username}}); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}
	if cursor, err = h.sendInbox(ctx, conn, username, cursor); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			if cursor, err = h.sendInbox(ctx, conn, username, cursor); err != nil {
				return
			}
		}
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	interval := h.inboxInterval
	if interval <= 0 {
		interval = defaultInterval
	}

	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return interval
}

// startReader drains incoming frames to handle control messages and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

// sendInbox writes every message newer than cursor and returns the new cursor.
func (h *Handler) sendInbox(ctx context.Context, conn *websocket.Conn, username string, cursor int64) (int64, error) {
	msgs, err := h.services.Inbox(ctx, username, cursor, 0)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_inbox_failed", "err", err, "username", username)
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteJSON(wsEnvelope{Type: "error", Error: "internal server error"})
		return cursor, err
	}
	for _, m := range msgs {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(wsEnvelope{Type: envelopeMessage, Data: m}); err != nil {
			if h.log != nil {
				h.log.Infow("ws_write_failed", "err", err)
			}
			return cursor, err
		}
		cursor = m.ID
	}
	return cursor, nil
}
