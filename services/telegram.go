// services/telegram.go
package services

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Messenger is the part of the Bot API the command handlers need.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, replyTo int) error
	FileURL(ctx context.Context, fileID string) (string, error)
}

// TelegramClient wraps the Bot API client.
type TelegramClient struct {
	Bot    *tgbotapi.BotAPI
	logger *zap.Logger
}

func NewTelegramClient(token string, debug bool, logger *zap.Logger) (*TelegramClient, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	bot.Debug = debug
	logger = logger.Named("telegram")
	logger.Info("authorized on telegram", zap.String("account", bot.Self.UserName))
	return &TelegramClient{Bot: bot, logger: logger}, nil
}

// Username is the bot's @name, used to strip command suffixes.
func (c *TelegramClient) Username() string {
	return c.Bot.Self.UserName
}

func (c *TelegramClient) SendText(_ context.Context, chatID int64, text string, replyTo int) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	msg.DisableWebPagePreview = true
	if _, err := c.Bot.Send(msg); err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}

func (c *TelegramClient) FileURL(_ context.Context, fileID string) (string, error) {
	url, err := c.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolve file %s: %w", fileID, err)
	}
	return url, nil
}

// SetWebhook registers url with Telegram. A non-empty secret is echoed back by
// Telegram in the X-Telegram-Bot-Api-Secret-Token header.
func (c *TelegramClient) SetWebhook(url, secret string) error {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	if _, err := c.Bot.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	c.logger.Info("webhook registered", zap.String("url", url))
	return nil
}

// DeleteWebhook switches Telegram back to getUpdates delivery.
func (c *TelegramClient) DeleteWebhook() error {
	if _, err := c.Bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// ChatNotifier posts to one fixed chat. It implements Notifier.
type ChatNotifier struct {
	Messenger Messenger
	ChatID    int64
}

func (n ChatNotifier) Notify(ctx context.Context, text string) error {
	return n.Messenger.SendText(ctx, n.ChatID, text, 0)
}
