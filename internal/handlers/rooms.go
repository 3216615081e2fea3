package handlers

import (
	"chatroom/internal/models"
	"chatroom/internal/services"
	"chatroom/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

func CreateRoomHandler(rooms RoomStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req models.CreateRoomRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		room, err := rooms.CreateRoom(c.Context(), req.Name, userID, req.MemberIDs)
		if err != nil {
			utils.LogError(err, "CreateRoom")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create room"})
		}
		return c.Status(fiber.StatusCreated).JSON(room)
	}
}

func ListRoomsHandler(rooms RoomStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		list, err := rooms.GetUserRooms(c.Context(), userID)
		if err != nil {
			utils.LogError(err, "GetUserRooms")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch rooms"})
		}
		if list == nil {
			list = []models.Room{}
		}
		return c.JSON(list)
	}
}

func JoinRoomHandler(rooms RoomStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		roomID := c.Params("id")

		if err := rooms.JoinRoom(c.Context(), roomID, userID); err != nil {
			if errors.Is(err, services.ErrRoomNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "room not found"})
			}
			utils.LogError(err, "JoinRoom")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to join room"})
		}
		return c.JSON(models.RoomResponse{RoomID: roomID})
	}
}
