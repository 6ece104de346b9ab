package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Sauravv193/event-collab-task-management/internal/auth"
	"github.com/Sauravv193/event-collab-task-management/internal/metrics"
)

// newUpgrader builds the handshake upgrader. An empty origin list allows
// every origin; frames are still authorized individually by the gate after
// the handshake.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients send no Origin header.
				return true
			}
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}
}

const (
	readDeadline = 90 * time.Second
	pingInterval = 30 * time.Second
)

// SendHandler is invoked for every admitted SEND frame.
type SendHandler func(ctx context.Context, sess *Session, f Frame)

type client struct {
	sess     *Session
	conn     *websocket.Conn
	mu       sync.Mutex // serializes writes
	topics   map[string]struct{}
	lastSeen time.Time
}

func (c *client) write(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *client) subscribed(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.topics[topic]
	return ok
}

// Hub manages realtime sessions and topic broadcast.
type Hub struct {
	gate     *Gate
	logger   *zap.Logger
	onSend   SendHandler
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client // keyed by session ID
}

func NewHub(gate *Gate, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		gate:     gate,
		logger:   logger,
		upgrader: newUpgrader(nil),
		clients:  make(map[string]*client),
	}
}

// SetAllowedOrigins restricts handshake origins. Empty means all.
func (h *Hub) SetAllowedOrigins(origins []string) {
	h.upgrader = newUpgrader(origins)
}

// SetSendHandler installs the handler for admitted SEND frames.
func (h *Hub) SetSendHandler(fn SendHandler) {
	h.onSend = fn
}

// HandleWS upgrades the request and runs the frame loop. A bearer token on
// the upgrade request binds the session identity immediately; otherwise the
// session stays anonymous until a credentialed CONNECT frame arrives.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	sess := NewSession()
	if ident := auth.IdentityFromContext(r.Context()); ident != nil {
		sess.Bind(ident)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		sess:     sess,
		conn:     conn,
		topics:   make(map[string]struct{}),
		lastSeen: time.Now().UTC(),
	}

	h.mu.Lock()
	h.clients[sess.ID] = c
	h.mu.Unlock()
	metrics.WSSessions.Inc()

	h.logger.Info("session connected",
		zap.String("session", sess.ID),
		zap.Bool("authenticated", sess.Authenticated()),
	)

	defer func() {
		conn.Close()
		h.mu.Lock()
		delete(h.clients, sess.ID)
		h.mu.Unlock()
		metrics.WSSessions.Dec()
		h.logger.Info("session disconnected", zap.String("session", sess.ID))
	}()

	conn.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.lastSeen = time.Now().UTC()
		c.mu.Unlock()
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))

	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(c, done)

	h.readLoop(r.Context(), c)
}

func (h *Hub) pingLoop(c *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second))
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, c *client) {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		c.mu.Lock()
		c.lastSeen = time.Now().UTC()
		c.mu.Unlock()

		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			h.logger.Warn("invalid frame",
				zap.String("session", c.sess.ID),
				zap.Error(err),
			)
			_ = c.write(Frame{Type: FrameError, Body: json.RawMessage(`"malformed frame"`)})
			continue
		}

		if !h.gate.Admit(ctx, c.sess, f) {
			_ = c.write(Frame{Type: FrameError, Destination: f.Destination, Body: json.RawMessage(`"denied"`)})
			continue
		}

		switch f.Type {
		case FrameSubscribe:
			c.mu.Lock()
			c.topics[f.Destination] = struct{}{}
			c.mu.Unlock()
		case FrameUnsubscribe:
			c.mu.Lock()
			delete(c.topics, f.Destination)
			c.mu.Unlock()
		case FrameSend:
			if h.onSend != nil {
				h.onSend(ctx, c.sess, f)
			}
		case FrameDisconnect:
			return
		}
	}
}

// Publish broadcasts payload to every session subscribed to the topic.
// Delivery is fire-and-forget: a failed write logs and moves on.
func (h *Hub) Publish(topic string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal broadcast", zap.String("topic", topic), zap.Error(err))
		return
	}
	f := Frame{Type: FrameMessage, Destination: topic, Body: body}

	h.mu.RLock()
	subscribers := make([]*client, 0)
	for _, c := range h.clients {
		if c.subscribed(topic) {
			subscribers = append(subscribers, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range subscribers {
		if err := c.write(f); err != nil {
			h.logger.Warn("broadcast write failed",
				zap.String("session", c.sess.ID),
				zap.String("topic", topic),
				zap.Error(err),
			)
		}
	}
}

// SessionCount returns the number of live sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SweepIdle closes sessions that have been silent longer than maxIdle and
// returns how many were closed.
func (h *Hub) SweepIdle(maxIdle time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxIdle)

	h.mu.RLock()
	stale := make([]*client, 0)
	for _, c := range h.clients {
		c.mu.Lock()
		if c.lastSeen.Before(cutoff) {
			stale = append(stale, c)
		}
		c.mu.Unlock()
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.logger.Info("closing idle session", zap.String("session", c.sess.ID))
		c.conn.Close()
	}
	return len(stale)
}

// Close terminates every live session.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		c.conn.Close()
	}
}
