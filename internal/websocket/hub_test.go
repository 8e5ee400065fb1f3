package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"content-studio-be/internal/pkg/logger"
	"content-studio-be/pkg/stream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func registered(t *testing.T, hub *Hub, sessionId string) *Client {
	t.Helper()
	c := NewClient(hub, nil, sessionId, "alice", nil)
	require.True(t, hub.Register(c))
	require.Eventually(t, func() bool { return hub.Watchers(sessionId) > 0 }, time.Second, 5*time.Millisecond)
	return c
}

func TestHub_NotifySessionReachesWatchers(t *testing.T) {
	hub, _ := runHub(t)
	a := registered(t, hub, "s1")
	b := registered(t, hub, "s1")
	other := registered(t, hub, "s2")

	hub.NotifySession(context.Background(), "s1", []byte(`{"type":"turn_committed"}`))

	assert.Len(t, a.send, 1)
	assert.Len(t, b.send, 1)
	assert.Len(t, other.send, 0)
}

func TestHub_RebindMovesClient(t *testing.T) {
	hub, _ := runHub(t)
	c := registered(t, hub, "expired")

	hub.Rebind(c, "fresh")

	assert.Equal(t, 0, hub.Watchers("expired"))
	assert.Equal(t, 1, hub.Watchers("fresh"))
	assert.Equal(t, "fresh", c.SessionId())

	hub.NotifySession(context.Background(), "expired", []byte(`{}`))
	assert.Len(t, c.send, 0)
}

func TestHub_UnregisterClosesClient(t *testing.T) {
	hub, _ := runHub(t)
	c := registered(t, hub, "s1")

	hub.Unregister(c)

	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatal("client was not closed")
	}
	assert.Eventually(t, func() bool { return hub.Watchers("s1") == 0 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, c.sendEvent(stream.Event{Type: stream.EventStatus}), errClientClosed)
}

func TestHub_StoppedHubRefusesClients(t *testing.T) {
	hub, cancel := runHub(t)
	cancel()
	<-hub.quit

	c := NewClient(hub, nil, "s1", "alice", nil)
	assert.False(t, hub.Register(c))

	hub.Unregister(c)
	select {
	case <-c.done:
	default:
		t.Fatal("client should be closed when the hub is gone")
	}
}

func TestClient_SendEventQueuesFrame(t *testing.T) {
	hub, _ := runHub(t)
	c := registered(t, hub, "s1")

	require.NoError(t, c.sendEvent(stream.Event{Type: stream.EventText, Text: "hello"}))

	var ev stream.Event
	require.NoError(t, json.Unmarshal(<-c.send, &ev))
	assert.Equal(t, stream.EventText, ev.Type)
	assert.Equal(t, "hello", ev.Text)
}
