// handlers/webhook.go
package handlers

import (
	"context"
	"encoding/json"

	"marathon-bot/middleware"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UpdateHandler consumes one Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update) error
}

// SetupWebhookRoutes mounts POST /webhook. Telegram always gets a 200 so it
// never redelivers; failures are logged and already reported in the chat.
func SetupWebhookRoutes(app *fiber.App, bot UpdateHandler, secret string, logger *zap.Logger) {
	logger = logger.Named("webhook")

	app.Post("/webhook", middleware.WebhookSecret(secret, logger), func(c *fiber.Ctx) error {
		var update tgbotapi.Update
		if err := json.Unmarshal(c.Body(), &update); err != nil {
			logger.Warn("malformed update", zap.Error(err), zap.Int("bytes", len(c.Body())))
			return c.SendString("OK")
		}
		if update.Message == nil || update.Message.Chat == nil || update.Message.From == nil {
			logger.Debug("ignoring update without message", zap.Int("update_id", update.UpdateID))
			return c.SendString("OK")
		}

		if err := bot.HandleUpdate(c.UserContext(), update); err != nil {
			logger.Error("update failed", zap.Int("update_id", update.UpdateID), zap.Error(err))
		}
		return c.SendString("OK")
	})
}
