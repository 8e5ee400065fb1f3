package serverutils

import (
	"errors"
	"log"

	"content-studio-be/pkg/dispatcher"
	"content-studio-be/pkg/session"
	"content-studio-be/pkg/store"
	"content-studio-be/pkg/stream"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns handler errors into the JSON error envelope
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message := ErrorStatus(err)
		if code >= fiber.StatusInternalServerError {
			log.Printf("[ERROR] %s %s: %v", ctx.Method(), ctx.Path(), err)
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}

// ErrorStatus maps an error to its HTTP status and a message safe to show
func ErrorStatus(err error) (int, string) {
	var fiberErr *fiber.Error
	var validationErr *ValidationError
	var attachmentErr *dispatcher.AttachmentError
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest, validationErr.Error()
	case errors.As(err, &attachmentErr):
		return fiber.StatusBadRequest, attachmentErr.Error()
	case errors.Is(err, stream.ErrEmptyTurn):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrSessionNotFound):
		return fiber.StatusNotFound, "Session not found"
	case errors.Is(err, session.ErrSessionBusy):
		return fiber.StatusConflict, "Another message in this conversation is still being processed"
	case errors.Is(err, store.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable, "Storage is unavailable, please try again"
	}
	return fiber.StatusInternalServerError, "Internal server error"
}
