package ingestion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/pkg/queue"
)

type memoryArchiver struct {
	mu       sync.Mutex
	archived []domain.Message
}

func (a *memoryArchiver) Archive(ctx context.Context, botID, providerName, correspondentID string, msg domain.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.archived = append(a.archived, msg)
	return nil
}

func (a *memoryArchiver) snapshot() []domain.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.Message(nil), a.archived...)
}

func TestDrainOnce_EmptiesQueuesInOrder(t *testing.T) {
	cfg := queue.Config{MaxMessages: 100, MaxCharacters: 10000, MaxDays: 30, MaxCharactersSingleMessage: 1000}
	queues := queue.NewManager("bot1", cfg, nil, nil)
	ctx := context.Background()

	queues.AddMessage(ctx, "alice", "one", domain.Sender{Identifier: "alice"}, domain.SourceUser, 0, nil)
	queues.AddMessage(ctx, "alice", "two", domain.Sender{Identifier: "alice"}, domain.SourceUser, 0, nil)

	archiver := &memoryArchiver{}
	svc := New("bot1", "whatsapp", queues, archiver, nil)

	drained := svc.drainOnce(ctx)

	assert.Equal(t, 2, drained)
	archived := archiver.snapshot()
	require.Len(t, archived, 2)
	assert.Equal(t, "one", archived[0].Content)
	assert.Equal(t, "two", archived[1].Content)
	assert.Equal(t, 0, queues.GetOrCreateQueue(ctx, "alice").Len())
}

func TestStop_DrainsPendingBeforeExit(t *testing.T) {
	cfg := queue.Config{MaxMessages: 100, MaxCharacters: 10000, MaxDays: 30, MaxCharactersSingleMessage: 1000}
	queues := queue.NewManager("bot1", cfg, nil, nil)
	ctx := context.Background()

	archiver := &memoryArchiver{}
	svc := New("bot1", "whatsapp", queues, archiver, nil)
	require.NoError(t, svc.Start(ctx))

	queues.AddMessage(ctx, "alice", "late", domain.Sender{Identifier: "alice"}, domain.SourceUser, 0, nil)
	require.NoError(t, svc.Stop(ctx))

	require.Eventually(t, func() bool {
		return len(archiver.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)
}
