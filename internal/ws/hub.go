package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const writeTimeout = 5 * time.Second

type envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

type conn struct {
	ws     *websocket.Conn
	userID int64
}

// Hub tracks live websocket connections per user and pushes game events to
// them. Delivery is best effort: a slow or dead peer is dropped, never
// waited on, so hub calls stay off the request path's critical section.
type Hub struct {
	log *slog.Logger

	mu    sync.RWMutex
	conns map[int64]map[string]*conn
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{log: logger, conns: make(map[int64]map[string]*conn)}
}

// Serve upgrades the request and parks the connection until the peer goes
// away. The read loop only drains control frames; clients talk to the game
// over HTTP, the socket is push-only.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID int64) {
	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn("websocket accept failed", "user_id", userID, "error", err)
		return
	}

	id := uuid.NewString()
	c := &conn{ws: sock, userID: userID}
	h.register(id, c)
	defer h.unregister(id, c)

	h.log.Debug("websocket connected", "user_id", userID, "conn_id", id)

	ctx := r.Context()
	for {
		if _, _, err := sock.Read(ctx); err != nil {
			sock.Close(websocket.StatusNormalClosure, "bye")
			return
		}
	}
}

func (h *Hub) register(id string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	peers, ok := h.conns[c.userID]
	if !ok {
		peers = make(map[string]*conn)
		h.conns[c.userID] = peers
	}
	peers[id] = c
}

func (h *Hub) unregister(id string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	peers, ok := h.conns[c.userID]
	if !ok {
		return
	}
	delete(peers, id)
	if len(peers) == 0 {
		delete(h.conns, c.userID)
	}
}

// Notify pushes one event to every live connection of one user.
func (h *Hub) Notify(userID int64, event string, payload any) {
	h.mu.RLock()
	targets := make([]*conn, 0, len(h.conns[userID]))
	for _, c := range h.conns[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	h.send(targets, event, payload)
}

// Broadcast pushes one event to every connected user.
func (h *Hub) Broadcast(event string, payload any) {
	h.mu.RLock()
	var targets []*conn
	for _, peers := range h.conns {
		for _, c := range peers {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	h.send(targets, event, payload)
}

func (h *Hub) send(targets []*conn, event string, payload any) {
	if len(targets) == 0 {
		return
	}
	data, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		h.log.Error("marshal websocket event", "event", event, "error", err)
		return
	}
	for _, c := range targets {
		go func(c *conn) {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()
			if err := c.ws.Write(ctx, websocket.MessageText, data); err != nil {
				h.log.Debug("websocket write failed, dropping peer",
					"user_id", c.userID, "event", event, "error", err)
				c.ws.Close(websocket.StatusAbnormalClosure, "write failed")
			}
		}(c)
	}
}

// ConnectedUsers reports how many distinct users hold at least one socket.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
