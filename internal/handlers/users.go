package handlers

import (
	"chatroom/internal/models"
	"chatroom/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// ListUsersHandler lists every user except the caller with online status.
func ListUsersHandler(users UserStore, hub *Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authUserID := c.Locals("user_id").(string)

		list, err := users.ListUsers(c.Context())
		if err != nil {
			utils.LogError(err, "ListUsers")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch users"})
		}

		resp := make([]models.UserInfo, 0, len(list))
		for _, u := range list {
			if u.ID == authUserID {
				continue
			}
			status := "offline"
			if hub.IsUserOnline(u.ID) {
				status = "online"
			}
			resp = append(resp, models.UserInfo{
				ID:        u.ID,
				Username:  u.Username,
				CreatedAt: u.CreatedAt,
				Status:    status,
			})
		}
		return c.JSON(resp)
	}
}
