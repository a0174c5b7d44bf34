package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Replant-Application/Replant-BE-sub002/config"
	"github.com/Replant-Application/Replant-BE-sub002/logger"
)

// GatewayAuthMiddleware validates the shared service token set by the
// API gateway. With no token configured (local dev) it passes everything
// through.
func GatewayAuthMiddleware() fiber.Handler {
	expectedToken := config.Cfg.MissionServiceToken

	return func(c *fiber.Ctx) error {
		if expectedToken == "" {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			logger.L.Warn("🚫 Missing Authorization header",
				zap.String("path", c.Path()),
			)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "gateway authentication token missing",
			})
		}

		// "Bearer <token>", or the raw token if the gateway sends it bare.
		token := strings.TrimPrefix(authHeader, "Bearer ")

		if token != expectedToken {
			logger.L.Warn("❌ Invalid gateway token",
				zap.String("path", c.Path()),
			)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid gateway authentication token",
			})
		}

		return c.Next()
	}
}
