package controller

import (
	"errors"

	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"

	"chat-service/blob"
	"chat-service/chat"
)

// Controller holds the handlers' collaborators. Everything is injected at
// startup; handlers keep no state of their own.
type Controller struct {
	Chat     *chat.Adapter
	Blob     blob.Uploader
	Enforcer *casbin.Enforcer
}

func New(svc *chat.Adapter, uploader blob.Uploader, enforcer *casbin.Enforcer) *Controller {
	return &Controller{Chat: svc, Blob: uploader, Enforcer: enforcer}
}

func success(c *fiber.Ctx, code int, message string, data any) error {
	return c.Status(code).JSON(fiber.Map{
		"status":  "success",
		"message": message,
		"data":    data,
	})
}

// fail maps an adapter failure onto its HTTP status. Unrecognized errors are
// internal store failures.
func fail(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, chat.ErrInvalidArgument), errors.Is(err, chat.ErrConflict):
		code = fiber.StatusBadRequest
	case errors.Is(err, chat.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, chat.ErrUnauthorized):
		code = fiber.StatusUnauthorized
	case errors.Is(err, chat.ErrUploadFailed):
		code = fiber.StatusInternalServerError
	}
	return c.Status(code).JSON(fiber.Map{
		"status":  "error",
		"message": err.Error(),
		"data":    nil,
	})
}

func badInput(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"status":  "error",
		"message": "Review your input",
		"data":    nil,
	})
}
