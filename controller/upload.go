package controller

import (
	"io"

	"github.com/gofiber/fiber/v2"
)

// Upload stores a standalone image and returns its public URL, for clients
// that attach the URL to a message themselves.
func (ctrl *Controller) Upload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return badInput(c)
	}
	file, err := header.Open()
	if err != nil {
		return badInput(c)
	}
	data, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		return badInput(c)
	}

	url, err := ctrl.Blob.Upload(c.Context(), data, header.Header.Get("Content-Type"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Upload failed",
			"data":    nil,
		})
	}

	return success(c, fiber.StatusOK, "", fiber.Map{
		"imageUrl": url,
	})
}
