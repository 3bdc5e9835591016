// Package realtime pushes new announcements to connected tenant dashboards
// over websockets.
//
// With redis configured, Publish goes through a pub/sub channel and every
// API instance delivers what it receives to its own sockets. Without redis,
// Publish delivers straight to this instance's sockets.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lalith-99/bikers/internal/models"
	"github.com/lalith-99/bikers/internal/observ"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	Channel = "bikers:announcements"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

type client struct {
	companyID uuid.UUID
	send      chan []byte
}

type Hub struct {
	redis   *redis.Client
	logger  *zap.Logger
	metrics *observ.Metrics

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub builds a hub. rdb and metrics may be nil. allowedOrigins mirrors
// the CORS list; "*" or an empty list accepts any origin.
func NewHub(rdb *redis.Client, logger *zap.Logger, metrics *observ.Metrics, allowedOrigins []string) *Hub {
	h := &Hub{
		redis:   rdb,
		logger:  logger,
		metrics: metrics,
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	allowAll := len(allowed) == 0
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return allowAll || origin == "" || set[origin]
	}
}

// Publish announces a to every subscriber that may see it.
func (h *Hub) Publish(ctx context.Context, a models.Announcement) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal announcement: %w", err)
	}

	if h.redis == nil {
		h.deliver(a, payload)
		return nil
	}
	if err := h.redis.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("publish announcement: %w", err)
	}
	return nil
}

// Run relays announcements from redis to local sockets until ctx ends.
// It returns immediately when redis is not configured.
func (h *Hub) Run(ctx context.Context) error {
	if h.redis == nil {
		return nil
	}

	sub := h.redis.Subscribe(ctx, Channel)
	defer sub.Close()

	// Wait for the subscription so nothing published after Run starts is lost.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", Channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var a models.Announcement
			if err := json.Unmarshal([]byte(msg.Payload), &a); err != nil {
				h.logger.Warn("dropping malformed announcement", zap.Error(err))
				continue
			}
			h.deliver(a, []byte(msg.Payload))
		}
	}
}

func (h *Hub) deliver(a models.Announcement, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !a.VisibleTo(c.companyID) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// Slow reader; it misses this one rather than stalling the rest.
			h.logger.Debug("announcement dropped for slow client", zap.String("company_id", c.companyID.String()))
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.StreamConnections.Inc()
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok && h.metrics != nil {
		h.metrics.StreamConnections.Dec()
	}
}

// Subscribers is the number of live sockets on this instance.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams announcements visible to
// companyID until the client goes away. The upgrade has already written an
// HTTP error when it fails.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, companyID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade websocket: %w", err)
	}

	c := &client{companyID: companyID, send: make(chan []byte, sendBuffer)}
	h.register(c)
	defer h.unregister(c)

	done := make(chan struct{})
	go h.readLoop(conn, done)
	return h.writeLoop(conn, c, done)
}

// readLoop only exists to process control frames and notice disconnects.
func (h *Hub) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, c *client, done <-chan struct{}) error {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case <-done:
			return nil
		case payload := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return closeErr(err)
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return closeErr(err)
			}
		}
	}
}

func closeErr(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return fmt.Errorf("write websocket: %w", err)
}
