package telegram

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/vertextoedge/mirror-bot/internal/port"
	"github.com/vertextoedge/mirror-bot/internal/util/ratelimiter"
	"go.uber.org/zap"
)

// MessageClient is the subset of the Bot API used for replies and edits.
// *bot.Bot implements it.
type MessageClient interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
}

// StatusMessage edits one status message in place
type StatusMessage struct {
	client    MessageClient
	limiter   *ratelimiter.Limiter
	chatID    int64
	messageID int
	key       string
	logger    *zap.Logger
}

// Ensure StatusMessage implements port.StatusSurface
var _ port.StatusSurface = (*StatusMessage)(nil)

// NewStatusMessage creates a surface for the message. limiter is shared by all status messages.
func NewStatusMessage(client MessageClient, limiter *ratelimiter.Limiter, chatID int64, messageID int, key string, logger *zap.Logger) *StatusMessage {
	return &StatusMessage{
		client:    client,
		limiter:   limiter,
		chatID:    chatID,
		messageID: messageID,
		key:       key,
		logger:    logger,
	}
}

// Emit replaces the message text
func (s *StatusMessage) Emit(ctx context.Context, text string) {
	s.edit(ctx, text, port.EmitOptions{DisableWebPreview: true})
}

// EmitThrottled replaces the message text unless the message was edited too recently
func (s *StatusMessage) EmitThrottled(ctx context.Context, text string, opts port.EmitOptions) {
	if allowed, wait := s.limiter.Allow(s.key); !allowed {
		s.logger.Debug("status edit throttled",
			zap.String("status_key", s.key),
			zap.Duration("wait", wait))
		return
	}
	s.edit(ctx, text, opts)
}

// Close drops the limiter state of the message
func (s *StatusMessage) Close() {
	s.limiter.Forget(s.key)
}

func (s *StatusMessage) edit(ctx context.Context, text string, opts port.EmitOptions) {
	params := &bot.EditMessageTextParams{
		ChatID:    s.chatID,
		MessageID: s.messageID,
		Text:      text,
	}
	if opts.DisableWebPreview {
		params.LinkPreviewOptions = &models.LinkPreviewOptions{IsDisabled: bot.True()}
	}

	if _, err := s.client.EditMessageText(ctx, params); err != nil {
		if isNotModified(err) {
			return
		}
		s.logger.Warn("failed to edit status message",
			zap.String("status_key", s.key),
			zap.Error(err))
	}
}

// isNotModified matches the Bot API error for an edit with unchanged text
func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
