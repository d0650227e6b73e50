package telegram

import (
	"context"
	"errors"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/vertextoedge/mirror-bot/internal/domain"
	"github.com/vertextoedge/mirror-bot/internal/port"
	"github.com/vertextoedge/mirror-bot/internal/service/mirror"
)

// fakeClient implements MessageClient for testing
type fakeClient struct {
	mu      sync.Mutex
	nextID  int
	sent    []*bot.SendMessageParams
	edits   []*bot.EditMessageTextParams
	sendErr error
	editErr error
}

func (c *fakeClient) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	c.sent = append(c.sent, params)
	c.nextID++
	return &models.Message{ID: 100 + c.nextID}, nil
}

func (c *fakeClient) EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edits = append(c.edits, params)
	if c.editErr != nil {
		return nil, c.editErr
	}
	return &models.Message{ID: params.MessageID}, nil
}

func (c *fakeClient) sentTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, p := range c.sent {
		out = append(out, p.Text)
	}
	return out
}

func (c *fakeClient) editTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, p := range c.edits {
		out = append(out, p.Text)
	}
	return out
}

// fakeService implements MirrorService for testing
type fakeService struct {
	mu        sync.Mutex
	got       []mirror.Invocation
	result    domain.DownloadResult
	err       error
	cancelled []string
	known     map[string]bool
}

func (s *fakeService) Mirror(ctx context.Context, inv mirror.Invocation, status port.StatusSurface) (domain.DownloadResult, error) {
	s.mu.Lock()
	s.got = append(s.got, inv)
	s.mu.Unlock()
	status.Emit(ctx, mirror.StatusDownloadingURL)
	return s.result, s.err
}

func (s *fakeService) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, key)
	return s.known[key]
}

var errNotModified = errors.New("bad request, Bad Request: message is not modified: specified new message content and reply markup are exactly the same")
