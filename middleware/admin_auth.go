// middleware/admin_auth.go
package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminAuth validates the Bearer token on operator endpoints. An empty token
// disables the endpoints entirely.
func AdminAuth(expectedToken string, logger *zap.Logger) fiber.Handler {
	logger = logger.Named("admin_auth")
	if expectedToken == "" {
		logger.Warn("ADMIN_TOKEN is not set; admin routes are disabled")
	}

	return func(c *fiber.Ctx) error {
		if expectedToken == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success": false,
				"error":   "admin endpoints are disabled",
			})
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			logger.Info("missing authorization header", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "admin token missing",
			})
		}

		// Parse "Bearer <token>", raw values are accepted too
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			logger.Warn("invalid admin token", zap.String("path", c.Path()), zap.String("ip", c.IP()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "invalid admin token",
			})
		}

		return c.Next()
	}
}
