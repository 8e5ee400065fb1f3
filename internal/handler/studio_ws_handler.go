package handler

import (
	"content-studio-be/internal/entity"
	"content-studio-be/internal/pkg/logger"
	"content-studio-be/internal/pkg/serverutils"
	internalWS "content-studio-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type StudioWsHandler struct {
	hub       *internalWS.Hub
	submitter internalWS.TurnSubmitter
	jwtSecret string
	logger    logger.ILogger
}

func NewStudioWsHandler(hub *internalWS.Hub, submitter internalWS.TurnSubmitter, jwtSecret string, log logger.ILogger) *StudioWsHandler {
	return &StudioWsHandler{
		hub:       hub,
		submitter: submitter,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

func (h *StudioWsHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws/:session_id", h.ServeWs)
}

// ServeWs upgrades the connection and attaches it to a session. Anonymous
// callers are allowed; a token, when sent, must be valid.
func (h *StudioWsHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	// Browsers cannot set headers on the handshake, so the query wins
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr = serverutils.BearerToken(c)
	}

	userId := entity.DefaultUserId
	if tokenStr != "" {
		id, err := serverutils.ParseUserToken(h.jwtSecret, tokenStr)
		if err != nil {
			h.logger.Warn("StudioWsHandler", "Invalid token in websocket handshake", map[string]interface{}{"error": err.Error()})
			return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Invalid token"))
		}
		userId = id
	}
	sessionId := c.Params("session_id")

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("StudioWsHandler", "WebSocket session started", map[string]interface{}{
			"session_id": sessionId,
			"user_id":    userId,
		})
		internalWS.ServeWs(h.hub, conn, sessionId, userId, h.submitter)
		h.logger.Info("StudioWsHandler", "WebSocket session ended", map[string]interface{}{"session_id": sessionId})
	})(c)
}
