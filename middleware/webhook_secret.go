// middleware/webhook_secret.go
package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TelegramSecretHeader carries the secret_token registered with setWebhook.
const TelegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookSecret rejects webhook calls that do not carry the configured secret.
// With no secret configured every call passes.
func WebhookSecret(secret string, logger *zap.Logger) fiber.Handler {
	logger = logger.Named("webhook_secret")

	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}
		got := c.Get(TelegramSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			logger.Warn("webhook call with bad secret", zap.String("ip", c.IP()), zap.Bool("header_present", got != ""))
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.Next()
	}
}
