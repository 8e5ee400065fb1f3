package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs runs a session socket until the peer leaves. Turns read from the
// socket stream their events back on it.
func ServeWs(hub *Hub, conn *websocket.Conn, sessionId, userId string, submitter TurnSubmitter) {
	client := NewClient(hub, conn, sessionId, userId, submitter)
	if !hub.Register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
