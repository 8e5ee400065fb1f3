package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"content-studio-be/pkg/dispatcher"
	"content-studio-be/pkg/stream"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var errClientClosed = errors.New("websocket client closed")

// TurnSubmitter runs one conversational turn
type TurnSubmitter interface {
	Submit(ctx context.Context, req stream.SubmitRequest, sink stream.Sink) (*stream.Result, error)
}

// inboundTurn is one JSON message read from the socket
type inboundTurn struct {
	Message     string            `json:"message"`
	Attachments []json.RawMessage `json:"attachments"`
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn

	UserId string

	mu        sync.RWMutex
	sessionId string

	// Buffered channel of outbound messages.
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// cancelled when the socket goes away, discarding in-flight turns
	ctx    context.Context
	cancel context.CancelFunc

	submitter TurnSubmitter
	turns     sync.WaitGroup
}

func NewClient(hub *Hub, conn *websocket.Conn, sessionId, userId string, submitter TurnSubmitter) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		Hub:       hub,
		Conn:      conn,
		UserId:    userId,
		sessionId: sessionId,
		send:      make(chan []byte, 256),
		done:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		submitter: submitter,
	}
}

func (c *Client) SessionId() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionId
}

func (c *Client) setSessionId(id string) {
	c.mu.Lock()
	c.sessionId = id
	c.mu.Unlock()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.done)
	})
}

// trySend queues a hub notification without blocking
func (c *Client) trySend(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	case <-c.done:
		return true
	default:
		return false
	}
}

// sendEvent is the turn sink: it blocks until the writer takes the frame or
// the socket closes
func (c *Client) sendEvent(ev stream.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return errClientClosed
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// readPump reads turns from the websocket connection and runs each on its own goroutine.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.Hub.Unregister(c)
		c.Conn.Close()
		c.turns.Wait()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Client", "Unexpected websocket close", map[string]interface{}{
					"session_id": c.SessionId(),
					"error":      err.Error(),
				})
			}
			return
		}

		var in inboundTurn
		if err := json.Unmarshal(data, &in); err != nil {
			_ = c.sendEvent(stream.Event{Type: stream.EventError, Message: "Messages must be JSON objects"})
			continue
		}
		c.turns.Add(1)
		go c.handleTurn(in)
	}
}

func (c *Client) handleTurn(in inboundTurn) {
	defer c.turns.Done()

	attachments, err := dispatcher.DecodeAttachments(in.Attachments)
	if err != nil {
		_ = c.sendEvent(stream.Event{Type: stream.EventError, Message: err.Error()})
		return
	}

	res, err := c.submitter.Submit(c.ctx, stream.SubmitRequest{
		SessionId:   c.SessionId(),
		UserId:      c.UserId,
		Message:     in.Message,
		Attachments: attachments,
	}, c.sendEvent)
	if err != nil {
		if errors.Is(err, stream.ErrEmptyTurn) {
			_ = c.sendEvent(stream.Event{Type: stream.EventError, Message: err.Error()})
		}
		c.Hub.logger.Info("Client", "Turn not committed", map[string]interface{}{
			"session_id": c.SessionId(),
			"error":      err.Error(),
		})
		return
	}

	if id := res.Session.Id.String(); id != c.SessionId() {
		c.Hub.Rebind(c, id)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
