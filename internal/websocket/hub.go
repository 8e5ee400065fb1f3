package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"content-studio-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "studio:session_events"

// clusterMessage is the Redis envelope used to reach sockets on other instances
type clusterMessage struct {
	Origin    string          `json:"origin"`
	SessionId string          `json:"session_id"`
	Message   json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients: session id -> sockets watching it
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	// closed when Run returns
	quit chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance fan-out; nil runs single-instance
	rdb      *redis.Client
	instance string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		clients:    make(map[string]map[*Client]struct{}),
		rdb:        rdb,
		instance:   uuid.NewString(),
		logger:     log,
	}
}

// Run processes registrations until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.quit)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			h.add(client, client.SessionId())
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionId()})

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client, client.SessionId())
			h.mu.Unlock()
			client.close()
		}
	}
}

// Register adds a client; it returns false once the hub has stopped
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
		c.close()
	}
}

func (h *Hub) add(c *Client, sessionId string) {
	set, ok := h.clients[sessionId]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[sessionId] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(c *Client, sessionId string) {
	set, ok := h.clients[sessionId]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, sessionId)
	}
}

// Rebind moves a socket to another session, after the server replaced an
// expired one
func (h *Hub) Rebind(c *Client, sessionId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c, c.SessionId())
	c.setSessionId(sessionId)
	h.add(c, sessionId)
}

// Watchers counts local sockets on a session
func (h *Hub) Watchers(sessionId string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionId])
}

// NotifySession sends payload to every socket watching the session, here and
// on other instances
func (h *Hub) NotifySession(ctx context.Context, sessionId string, payload []byte) {
	h.deliver(sessionId, payload)

	if h.rdb != nil {
		msg, err := json.Marshal(clusterMessage{Origin: h.instance, SessionId: sessionId, Message: payload})
		if err != nil {
			return
		}
		if err := h.rdb.Publish(ctx, clusterChannel, msg).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to publish to Redis", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (h *Hub) deliver(sessionId string, payload []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[sessionId]))
	for c := range h.clients[sessionId] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.trySend(payload) {
			h.logger.Warn("Hub", "Client send buffer full, dropping message", map[string]interface{}{"session_id": sessionId})
		}
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instance {
				continue
			}
			h.deliver(payload.SessionId, payload.Message)
		}
	}
}
