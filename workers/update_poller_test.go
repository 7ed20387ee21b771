package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type chanSource struct {
	ch      chan tgbotapi.Update
	mu      sync.Mutex
	cfg     tgbotapi.UpdateConfig
	stopped bool
}

func (s *chanSource) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return s.ch
}

func (s *chanSource) StopReceivingUpdates() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

type countingHandler struct {
	mu  sync.Mutex
	ids []int
}

func (h *countingHandler) HandleUpdate(_ context.Context, u tgbotapi.Update) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ids = append(h.ids, u.UpdateID)
	if u.UpdateID == 2 {
		return errors.New("handler failed")
	}
	return nil
}

func (h *countingHandler) seen() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.ids...)
}

func TestUpdatePollerHandlesInOrderUntilCancelled(t *testing.T) {
	source := &chanSource{ch: make(chan tgbotapi.Update, 3)}
	handler := &countingHandler{}
	poller := NewUpdatePoller(source, handler, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	for id := 1; id <= 3; id++ {
		source.ch <- tgbotapi.Update{UpdateID: id}
	}
	require.Eventually(t, func() bool { return len(handler.seen()) == 3 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []int{1, 2, 3}, handler.seen())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
	source.mu.Lock()
	defer source.mu.Unlock()
	assert.True(t, source.stopped)
	assert.Equal(t, 60, source.cfg.Timeout)
}

func TestUpdatePollerStopsWhenChannelCloses(t *testing.T) {
	source := &chanSource{ch: make(chan tgbotapi.Update)}
	poller := NewUpdatePoller(source, &countingHandler{}, zap.NewNop())
	close(source.ch)

	done := make(chan struct{})
	go func() {
		poller.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not return")
	}
}
