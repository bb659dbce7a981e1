package middleware

import (
	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
)

// RBAC enforces casbin policy on the request path. The caller identifies
// itself with the X-Phone-Number header; roles are granted per phone number
// via grouping policies.
func RBAC(enforcer *casbin.Enforcer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		phone := c.Get("X-Phone-Number")
		if phone == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Missing X-Phone-Number header",
				"data":    nil,
			})
		}

		if err := enforcer.LoadPolicy(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "Internal server error",
				"data":    nil,
			})
		}

		accepted, err := enforcer.Enforce(phone, c.Path(), c.Method())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "Internal server error",
				"data":    nil,
			})
		}

		if !accepted {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"status":  "error",
				"message": "Forbidden",
				"data":    nil,
			})
		}

		return c.Next()
	}
}
