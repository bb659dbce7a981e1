package controller

import (
	"github.com/gofiber/fiber/v2"

	"chat-service/event"
	"chat-service/model"
	"chat-service/socketio"
)

type RegisterInput struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

type LoginInput struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

type UserStatusInput struct {
	PhoneNumber string `json:"phoneNumber"`
	Status      string `json:"status"`
}

func (ctrl *Controller) RegisterUser(c *fiber.Ctx) error {
	input := new(RegisterInput)
	if err := c.BodyParser(input); err != nil {
		return badInput(c)
	}

	if err := ctrl.Chat.RegisterUser(c.Context(), input.PhoneNumber, input.Password); err != nil {
		return fail(c, err)
	}

	if ctrl.Enforcer != nil {
		ctrl.Enforcer.AddGroupingPolicy(input.PhoneNumber, "user")
	}
	event.EmitJSON(event.ActionUserRegistered, fiber.Map{
		"phoneNumber": input.PhoneNumber,
	})

	return success(c, fiber.StatusCreated, "User registered", fiber.Map{
		"phoneNumber": input.PhoneNumber,
	})
}

func (ctrl *Controller) Login(c *fiber.Ctx) error {
	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		return badInput(c)
	}

	phone, err := ctrl.Chat.Authenticate(c.Context(), input.PhoneNumber, input.Password)
	if err != nil {
		return fail(c, err)
	}

	return success(c, fiber.StatusOK, "Login successful", fiber.Map{
		"phoneNumber": phone,
	})
}

func (ctrl *Controller) UserStatus(c *fiber.Ctx) error {
	input := new(UserStatusInput)
	if err := c.BodyParser(input); err != nil {
		return badInput(c)
	}

	if err := ctrl.Chat.SetPresence(c.Context(), input.PhoneNumber, input.Status); err != nil {
		return fail(c, err)
	}

	event.EmitJSON(event.ActionPresenceChanged, fiber.Map{
		"phoneNumber":  input.PhoneNumber,
		"onlineStatus": input.Status,
	})
	socketio.Broadcast("status", fiber.Map{
		"phoneNumber":  input.PhoneNumber,
		"onlineStatus": input.Status,
	})

	message := "User is offline"
	if input.Status == model.StatusOnline {
		message = "User is online"
	}
	return success(c, fiber.StatusOK, message, nil)
}
