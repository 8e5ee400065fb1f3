package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"content-studio-be/internal/dto"
	"content-studio-be/internal/pkg/serverutils"
	"content-studio-be/internal/service"
	"content-studio-be/pkg/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IStudioController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	ShowSession(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	ListAssets(ctx *fiber.Ctx) error
	Chat(ctx *fiber.Ctx) error
	ChatStream(ctx *fiber.Ctx) error
	Gallery(ctx *fiber.Ctx) error
}

type studioController struct {
	service   service.IStudioService
	jwtSecret string
}

func NewStudioController(service service.IStudioService, jwtSecret string) IStudioController {
	return &studioController{service: service, jwtSecret: jwtSecret}
}

func (c *studioController) RegisterRoutes(r fiber.Router) {
	auth := serverutils.JwtMiddleware(c.jwtSecret)

	h := r.Group("/studio/v1")
	h.Use(auth)
	h.Post("/sessions", c.CreateSession)
	h.Get("/sessions", c.ListSessions)
	h.Get("/sessions/:id", c.ShowSession)
	h.Delete("/sessions/:id", c.DeleteSession)
	h.Get("/sessions/:id/assets", c.ListAssets)
	h.Post("/chat", c.Chat)
	h.Post("/chat/stream", c.ChatStream)

	r.Get("/gallery", auth, c.Gallery)
}

func sessionID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}
	return id, nil
}

func (c *studioController) CreateSession(ctx *fiber.Ctx) error {
	res, err := c.service.CreateSession(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *studioController) ShowSession(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetSession(ctx.UserContext(), serverutils.UserID(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}

func (c *studioController) ListSessions(ctx *fiber.Ctx) error {
	res, err := c.service.ListSessions(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get all sessions", res))
}

func (c *studioController) DeleteSession(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}

	if err := c.service.DeleteSession(ctx.UserContext(), serverutils.UserID(ctx), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete session", nil))
}

func (c *studioController) ListAssets(ctx *fiber.Ctx) error {
	id, err := sessionID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.ListAssets(ctx.UserContext(), serverutils.UserID(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session assets", res))
}

func (c *studioController) parseChat(ctx *fiber.Ctx) (*dto.ChatRequest, error) {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *studioController) Chat(ctx *fiber.Ctx) error {
	req, err := c.parseChat(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Chat(ctx.UserContext(), serverutils.UserID(ctx), req, nil)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success chat", res))
}

// ChatStream answers with server-sent events. A failed write means the client
// left, which cancels the turn before anything is committed.
func (c *studioController) ChatStream(ctx *fiber.Ctx) error {
	req, err := c.parseChat(ctx)
	if err != nil {
		return err
	}
	userId := serverutils.UserID(ctx)

	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		turnCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sent := false
		sink := func(ev stream.Event) error {
			sent = true
			return writeEvent(w, ev)
		}

		_, err := c.service.Chat(turnCtx, userId, req, sink)
		if err != nil && !sent && !errors.Is(err, stream.ErrClientGone) {
			_, message := serverutils.ErrorStatus(err)
			_ = writeEvent(w, stream.Event{Type: stream.EventError, Message: message})
		}
	})
	return nil
}

func writeEvent(w *bufio.Writer, ev stream.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return err
	}
	return w.Flush()
}

func (c *studioController) Gallery(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 50)
	res := c.service.Gallery(serverutils.UserID(ctx), limit)
	return ctx.JSON(serverutils.SuccessResponse("Success get gallery", res))
}
