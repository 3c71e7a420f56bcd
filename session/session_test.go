package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/pkg/queue"
)

type fakeProvider struct {
	mu        sync.Mutex
	listening bool
	stopped   bool
	cleanup   bool
}

func (f *fakeProvider) Listen(ctx context.Context) {
	f.mu.Lock()
	f.listening = true
	f.mu.Unlock()
	<-ctx.Done()
}

func (f *fakeProvider) StopListening(ctx context.Context, cleanupSession bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	f.cleanup = cleanupSession
	return nil
}

type recordingHandler struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (h *recordingHandler) HandleMessage(ctx context.Context, correspondentID string, msg domain.Message, group *domain.Group) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

type panickingHandler struct{}

func (panickingHandler) HandleMessage(ctx context.Context, correspondentID string, msg domain.Message, group *domain.Group) {
	panic("handler exploded")
}

func queueConfig() queue.Config {
	return queue.Config{MaxMessages: 100, MaxCharacters: 10000, MaxDays: 30, MaxCharactersSingleMessage: 1000}
}

func TestDispatch_OnlyUserMessagesReachHandlers(t *testing.T) {
	s := New("bot1", queue.NewManager("bot1", queueConfig(), nil, nil), &fakeProvider{}, nil)
	h := &recordingHandler{}
	s.RegisterMessageHandler(h)

	s.dispatch(context.Background(), "alice", domain.Message{ID: 1, Content: "hi", Source: domain.SourceUser})
	s.dispatch(context.Background(), "alice", domain.Message{ID: 2, Content: "echo", Source: domain.SourceBot})
	s.dispatch(context.Background(), "alice", domain.Message{ID: 3, Content: "own phone", Source: domain.SourceUserOutgoing})

	require.Len(t, h.messages, 1)
	assert.Equal(t, "hi", h.messages[0].Content)
}

func TestDispatch_PanickingHandlerDoesNotBlockPeers(t *testing.T) {
	s := New("bot1", queue.NewManager("bot1", queueConfig(), nil, nil), &fakeProvider{}, nil)
	h := &recordingHandler{}
	s.RegisterMessageHandler(panickingHandler{})
	s.RegisterMessageHandler(h)

	s.dispatch(context.Background(), "alice", domain.Message{ID: 1, Content: "hi", Source: domain.SourceUser})

	require.Len(t, h.messages, 1)
}

type recordingService struct {
	mu     sync.Mutex
	events *[]string
	name   string
}

func (s *recordingService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.events = append(*s.events, "start:"+s.name)
	return nil
}

func (s *recordingService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.events = append(*s.events, "stop:"+s.name)
	return nil
}

func TestStop_ServicesStopInLIFOOrderThenProvider(t *testing.T) {
	provider := &fakeProvider{}
	s := New("bot1", queue.NewManager("bot1", queueConfig(), nil, nil), provider, nil)

	var events []string
	s.RegisterService(&recordingService{events: &events, name: "first"})
	s.RegisterService(&recordingService{events: &events, name: "second"})

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background(), true))

	assert.Equal(t, []string{"start:first", "start:second", "stop:second", "stop:first"}, events)
	assert.True(t, provider.stopped)
	assert.True(t, provider.cleanup)
}
