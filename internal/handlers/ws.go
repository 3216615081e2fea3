package handlers

import (
	"context"
	"strings"

	"chatroom/internal/logger"
	"chatroom/internal/metrics"
	"chatroom/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Limits bounds inbound frames per connection.
type Limits struct {
	Rate  rate.Limit
	Burst int
}

// WebSocketHandler handles the websocket connection
func WebSocketHandler(router *Router, limits Limits) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		// Retrieve user info from locals (set by middleware)
		userID := c.Locals("user_id").(string)
		username, _ := c.Locals("username").(string)

		s := NewSession(uuid.New().String(), userID, username, c)
		if router.hub.Register(s) {
			logger.Info("user_online", "user", userID)
		}
		logger.Debug("ws_connected", "user", userID, "conn", s.ConnID, "connections", router.hub.CountUserConnections(userID))
		metrics.WSConnections.Inc()

		defer func() {
			if router.hub.Unregister(s.ConnID) {
				logger.Info("user_offline", "user", userID)
			}
			metrics.WSConnections.Dec()
			c.Close()
		}()

		// Send welcome message
		_ = s.Send(models.Frame{
			Event:   models.EventConnected,
			Message: "Welcome to the chat server",
		})

		limiter := rate.NewLimiter(limits.Rate, limits.Burst)
		ctx := context.Background()
		for {
			msgType, msg, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					logger.Warn("ws_read_error", "user", userID, "error", err.Error())
				}
				break
			}

			if !limiter.Allow() {
				metrics.FramesThrottled.Inc()
				_ = s.Send(errorFrame("", "rate limited"))
				continue
			}

			router.HandleMessage(ctx, s, msgType, msg)
		}
	})
}

// WSUpgradeMiddleware upgrades the connection to WebSocket
func WSUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// AuthMiddleware verifies the JWT token from `access_token` or the
// Authorization header and stores the caller in locals.
func AuthMiddleware(tokens TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("access_token")
		if token == "" {
			authHeader := c.Get(fiber.HeaderAuthorization)
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = authHeader[len("Bearer "):]
			}
		}

		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing token"})
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("username", claims.Username)
		return c.Next()
	}
}
