package controller

import (
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"chat-service/chat"
	"chat-service/event"
	"chat-service/socketio"
)

type SendMessageInput struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

type ReplyInput struct {
	PhoneNumber string  `json:"phoneNumber"`
	MessageID   string  `json:"messageId"`
	Sender      string  `json:"sender"`
	Text        string  `json:"text"`
	ImageURL    *string `json:"imageUrl"`
}

type DeleteMessageInput struct {
	MessageID string `json:"messageId"`
	To        string `json:"to"`
	From      string `json:"from"`
}

// SendMessage accepts either a JSON body or a multipart form with an
// optional image part. The image is uploaded to the blob store before the
// message is written anywhere.
func (ctrl *Controller) SendMessage(c *fiber.Ctx) error {
	input := new(SendMessageInput)
	var image []byte
	var imageType string

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		input.To = c.FormValue("to")
		input.From = c.FormValue("from")
		input.Message = c.FormValue("message")
		if header, err := c.FormFile("image"); err == nil {
			file, err := header.Open()
			if err != nil {
				return badInput(c)
			}
			image, err = io.ReadAll(file)
			file.Close()
			if err != nil {
				return badInput(c)
			}
			imageType = header.Header.Get("Content-Type")
		}
	} else if err := c.BodyParser(input); err != nil {
		return badInput(c)
	}

	id, err := ctrl.Chat.SendMessage(c.Context(), input.To, input.From, input.Message, image, imageType)
	if err != nil {
		return fail(c, err)
	}

	event.EmitJSON(event.ActionMessageSent, fiber.Map{
		"messageId": id,
		"to":        input.To,
		"from":      input.From,
	})
	socketio.Emit(input.To, "message", fiber.Map{
		"messageId": id,
		"to":        input.To,
		"from":      input.From,
		"message":   input.Message,
	})

	return success(c, fiber.StatusCreated, "Message sent", fiber.Map{
		"messageId": id,
	})
}

func (ctrl *Controller) FetchMessages(c *fiber.Ctx) error {
	messages, err := ctrl.Chat.FetchMessages(c.Context(), c.Params("phoneNumber"))
	if err != nil {
		return fail(c, err)
	}
	return success(c, fiber.StatusOK, "", messages)
}

func (ctrl *Controller) ReplyToMessage(c *fiber.Ctx) error {
	input := new(ReplyInput)
	if err := c.BodyParser(input); err != nil {
		return badInput(c)
	}

	replyID, err := ctrl.Chat.ReplyToMessage(c.Context(),
		input.PhoneNumber, input.MessageID, input.Sender, input.Text, input.ImageURL)
	if err != nil {
		return fail(c, err)
	}

	return success(c, fiber.StatusCreated, "Reply added", fiber.Map{
		"replyId": replyID,
	})
}

func (ctrl *Controller) DeleteMessage(c *fiber.Ctx) error {
	input := new(DeleteMessageInput)
	if err := c.BodyParser(input); err != nil {
		return badInput(c)
	}

	err := ctrl.Chat.DeleteMessage(c.Context(), input.MessageID, input.To, input.From)
	if err != nil && !errors.Is(err, chat.ErrPartialDelete) {
		return fail(c, err)
	}

	event.EmitJSON(event.ActionMessageDeleted, fiber.Map{
		"messageId": input.MessageID,
		"to":        input.To,
		"from":      input.From,
	})

	if err != nil {
		// One copy was missing; the other is already overwritten and stays
		// that way.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "partial",
			"message": err.Error(),
			"data":    nil,
		})
	}
	return success(c, fiber.StatusOK, "Message deleted", nil)
}

func (ctrl *Controller) AllMessages(c *fiber.Ctx) error {
	all, err := ctrl.Chat.FetchAllUsersMessages(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return success(c, fiber.StatusOK, "", all)
}
