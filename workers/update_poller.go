// workers/update_poller.go
package workers

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// UpdateSource delivers Telegram updates by long polling. *tgbotapi.BotAPI
// implements it.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// UpdateHandler consumes one update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update) error
}

// UpdatePoller feeds long-polled updates to the bot. It is used when no
// webhook URL is configured.
type UpdatePoller struct {
	source         UpdateSource
	handler        UpdateHandler
	pollTimeout    int // seconds, passed to getUpdates
	handlerTimeout time.Duration
	logger         *zap.Logger
}

func NewUpdatePoller(source UpdateSource, handler UpdateHandler, logger *zap.Logger) *UpdatePoller {
	return &UpdatePoller{
		source:         source,
		handler:        handler,
		pollTimeout:    60,
		handlerTimeout: time.Minute,
		logger:         logger.Named("poller"),
	}
}

func (p *UpdatePoller) Start(ctx context.Context) {
	p.logger.Info("starting telegram long polling")
	go p.Run(ctx)
}

// Run blocks until ctx is done or the update channel closes.
// Updates are handled one at a time, in order.
func (p *UpdatePoller) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.pollTimeout
	updates := p.source.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			p.source.StopReceivingUpdates()
			p.logger.Info("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				p.logger.Info("update channel closed")
				return
			}
			p.handle(ctx, update)
		}
	}
}

func (p *UpdatePoller) handle(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, p.handlerTimeout)
	defer cancel()

	if err := p.handler.HandleUpdate(ctx, update); err != nil {
		// already reported to the chat; keep polling
		p.logger.Warn("update failed", zap.Int("update_id", update.UpdateID), zap.Error(err))
	}
}
