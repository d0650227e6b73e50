package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// BotConfig contains Bot API connection settings
type BotConfig struct {
	Token       string
	APIURL      string
	PollTimeout time.Duration
}

// NewBot creates the Bot API client. dispatch receives every update once Run starts polling.
func NewBot(cfg BotConfig, dispatch bot.HandlerFunc, logger *zap.Logger) (*bot.Bot, error) {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Minute
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(dispatch),
		bot.WithHTTPClient(cfg.PollTimeout, &http.Client{Timeout: cfg.PollTimeout + 10*time.Second}),
		bot.WithErrorsHandler(func(err error) {
			logger.Warn("telegram polling error", zap.Error(err))
		}),
	}
	if cfg.APIURL != "" {
		opts = append(opts, bot.WithServerURL(cfg.APIURL))
	}

	b, err := bot.New(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return b, nil
}

// Run polls for updates until ctx is done, then waits for running invocations
func Run(ctx context.Context, b *bot.Bot, handler *Handler, logger *zap.Logger) {
	logger.Info("telegram bot polling started")
	b.Start(ctx)
	logger.Info("telegram bot polling stopped, waiting for running downloads")
	handler.Wait()
}
