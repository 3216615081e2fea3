package handlers

import (
	"chatroom/internal/models"
	"chatroom/internal/services"
	"chatroom/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

const DefaultHistoryLimit = 200

// HistoryHandler serves GET /api/messages/:chatId?userId=&type=.
func HistoryHandler(store MessageStore, limit int) fiber.Handler {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		if q := c.Query("userId"); q != "" && q != userID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "userId does not match token"})
		}
		chatType, ok := models.ParseChatType(c.Query("type", string(models.ChatTypeDirect)))
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "type must be direct or room"})
		}

		msgs, err := store.GetMessages(c.Context(), userID, c.Params("chatId"), chatType, limit)
		if err != nil {
			if errors.Is(err, services.ErrNotMember) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
			}
			utils.LogError(err, "GetMessages")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch messages"})
		}
		if msgs == nil {
			msgs = []models.Message{}
		}
		return c.JSON(models.HistoryResponse{Data: msgs})
	}
}
