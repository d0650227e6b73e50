package telegram

import (
	"context"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/vertextoedge/mirror-bot/internal/domain"
	"github.com/vertextoedge/mirror-bot/internal/port"
	"github.com/vertextoedge/mirror-bot/internal/service/mirror"
	"github.com/vertextoedge/mirror-bot/internal/util/ratelimiter"
	"go.uber.org/zap"
)

// MirrorService runs and cancels invocations. *mirror.Service implements it.
type MirrorService interface {
	Mirror(ctx context.Context, inv mirror.Invocation, status port.StatusSurface) (domain.DownloadResult, error)
	Cancel(key string) bool
}

// HandlerConfig contains command handler settings
type HandlerConfig struct {
	// AllowChat filters chats, nil serves all
	AllowChat func(chatID int64) bool

	// PublicURL is appended to success messages when set
	PublicURL string
}

// Handler dispatches chat commands. Each /mirror runs in its own goroutine.
type Handler struct {
	config  HandlerConfig
	client  MessageClient
	service MirrorService
	limiter *ratelimiter.Limiter
	logger  *zap.Logger

	wg sync.WaitGroup
}

// NewHandler creates a new Handler. limiter throttles progress edits per status message.
func NewHandler(cfg HandlerConfig, client MessageClient, service MirrorService, limiter *ratelimiter.Limiter, logger *zap.Logger) *Handler {
	return &Handler{
		config:  cfg,
		client:  client,
		service: service,
		limiter: limiter,
		logger:  logger,
	}
}

// HandleUpdate is registered as the bot's default handler
func (h *Handler) HandleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}
	h.handleMessage(ctx, update.Message)
}

// Wait blocks until running invocations have finished
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) handleMessage(ctx context.Context, msg *models.Message) {
	name, args, ok := ParseCommand(msg.Text)
	if !ok {
		name, args, ok = ParseCommand(msg.Caption)
	}
	if !ok {
		return
	}

	if h.config.AllowChat != nil && !h.config.AllowChat(msg.Chat.ID) {
		h.logger.Debug("ignoring command from chat not in allowlist",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.String("command", name))
		return
	}

	switch name {
	case "mirror":
		h.handleMirror(ctx, msg, args)
	case "cancel":
		h.handleCancel(ctx, msg)
	case "help", "start":
		h.reply(ctx, msg, HelpText(args))
	}
}

func (h *Handler) handleMirror(ctx context.Context, msg *models.Message, args string) {
	req, err := BuildRequest(msg, args)
	if err != nil {
		h.reply(ctx, msg, ResultText(domain.DownloadResult{}, err, ""))
		return
	}

	statusMsg := h.reply(ctx, msg, TextProcessing)
	if statusMsg == nil {
		return
	}

	key := mirror.StatusKey(msg.Chat.ID, statusMsg.ID)
	status := NewStatusMessage(h.client, h.limiter, msg.Chat.ID, statusMsg.ID, key, h.logger)
	inv := mirror.Invocation{
		ChatID:    msg.Chat.ID,
		StatusKey: key,
		Request:   req,
	}

	h.logger.Info("mirror command received",
		zap.Int64("chat_id", msg.Chat.ID),
		zap.String("status_key", key),
		zap.String("source_kind", req.Kind.String()),
		zap.String("source", req.Source()))

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer status.Close()

		result, err := h.service.Mirror(ctx, inv, status)
		// The final edit must land even when shutdown cancelled ctx
		status.Emit(context.WithoutCancel(ctx), ResultText(result, err, h.config.PublicURL))
	}()
}

func (h *Handler) handleCancel(ctx context.Context, msg *models.Message) {
	if msg.ReplyToMessage == nil {
		h.reply(ctx, msg, TextNothingCancel)
		return
	}

	key := mirror.StatusKey(msg.Chat.ID, msg.ReplyToMessage.ID)
	if !h.service.Cancel(key) {
		h.reply(ctx, msg, TextNothingCancel)
		return
	}

	h.logger.Info("cancellation requested", zap.String("status_key", key))
	h.reply(ctx, msg, TextCancelling)
}

func (h *Handler) reply(ctx context.Context, msg *models.Message, text string) *models.Message {
	sent, err := h.client.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             msg.Chat.ID,
		Text:               text,
		ReplyParameters:    &models.ReplyParameters{MessageID: msg.ID},
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	})
	if err != nil {
		h.logger.Warn("failed to send message",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Error(err))
		return nil
	}
	return sent
}
