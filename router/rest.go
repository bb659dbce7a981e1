package router

import (
	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"chat-service/controller"
	"chat-service/middleware"
)

func Rest(app *fiber.App, ctrl *controller.Controller, enforcer *casbin.Enforcer) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Welcome to the chat server!")
	})

	api := app.Group("/api", logger.New())

	// Users
	api.Post("/users", ctrl.RegisterUser)
	api.Post("/login", ctrl.Login)
	api.Post("/user-status", ctrl.UserStatus)

	// Messages
	api.Post("/messages", ctrl.SendMessage)
	api.Get("/messages/:phoneNumber", ctrl.FetchMessages)
	api.Post("/messages/reply", ctrl.ReplyToMessage)
	api.Post("/messages/delete", ctrl.DeleteMessage)

	// Images
	api.Post("/upload", ctrl.Upload)

	// Admin
	admin := api.Group("/admin", middleware.RBAC(enforcer))
	admin.Get("/messages", ctrl.AllMessages)
}
