package handlers

import (
	"chatroom/internal/models"
	"chatroom/internal/services"
	"chatroom/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

func RegisterHandler(users UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		user, err := users.Register(c.Context(), req)
		if err != nil {
			if errors.Is(err, services.ErrUserExists) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "username already exists"})
			}
			utils.LogError(err, "Register")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to register"})
		}
		return c.Status(fiber.StatusCreated).JSON(user)
	}
}

func LoginHandler(users UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		res, err := users.Login(c.Context(), req)
		if err != nil {
			if !errors.Is(err, services.ErrInvalidCredentials) {
				utils.LogError(err, "Login")
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
		}
		return c.JSON(res)
	}
}

// RefreshHandler exchanges a refresh token for a new token pair.
func RefreshHandler(users UserStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		if body.RefreshToken == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "refresh_token required"})
		}
		res, err := users.Refresh(c.Context(), body.RefreshToken)
		if err != nil {
			if !errors.Is(err, services.ErrInvalidToken) {
				utils.LogError(err, "Refresh")
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid refresh token"})
		}
		return c.JSON(res)
	}
}
