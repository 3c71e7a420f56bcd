package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AzielCF/chatbot-platform/domain"
)

func sender(id string) domain.Sender {
	return domain.Sender{Identifier: id, DisplayName: id}
}

func TestAddMessage_TruncatesOversizedContent(t *testing.T) {
	cfg := Config{MaxMessages: 10, MaxCharacters: 1000, MaxDays: 30, MaxCharactersSingleMessage: 5}
	q := newQueue("bot1", "alice", cfg, 0, nil)

	msg := q.AddMessage("123456789", sender("alice"), domain.SourceUser, 0, nil)

	assert.Equal(t, "12345", msg.Content)
	assert.Equal(t, 1, q.Len())
}

func TestAddMessage_EvictsByCountWhenFull(t *testing.T) {
	cfg := Config{MaxMessages: 2, MaxCharacters: 1000, MaxDays: 30, MaxCharactersSingleMessage: 100}
	q := newQueue("bot1", "alice", cfg, 0, nil)

	first := q.AddMessage("one", sender("alice"), domain.SourceUser, 0, nil)
	q.AddMessage("two", sender("alice"), domain.SourceUser, 0, nil)
	q.AddMessage("three", sender("alice"), domain.SourceUser, 0, nil)

	require.Equal(t, 2, q.Len())
	popped, ok := q.PopMessage()
	require.True(t, ok)
	assert.NotEqual(t, first.ID, popped.ID, "oldest message should have been evicted by count limit")
	assert.Equal(t, "two", popped.Content)
}

func TestAddMessage_EvictsByCharacterBudget(t *testing.T) {
	cfg := Config{MaxMessages: 100, MaxCharacters: 10, MaxDays: 30, MaxCharactersSingleMessage: 100}
	q := newQueue("bot1", "alice", cfg, 0, nil)

	q.AddMessage("12345", sender("alice"), domain.SourceUser, 0, nil)  // 5 chars
	q.AddMessage("abcdef", sender("alice"), domain.SourceUser, 0, nil) // 6 chars; 5+6=11 > 10, evict first

	assert.Equal(t, 1, q.Len())
	assert.LessOrEqual(t, q.TotalCharacters(), 10)
	msg, ok := q.PopMessage()
	require.True(t, ok)
	assert.Equal(t, "abcdef", msg.Content)
}

func TestAddMessage_ExactlyMaxCharactersSucceeds(t *testing.T) {
	cfg := Config{MaxMessages: 10, MaxCharacters: 5, MaxDays: 30, MaxCharactersSingleMessage: 5}
	q := newQueue("bot1", "alice", cfg, 0, nil)

	q.AddMessage("12345", sender("alice"), domain.SourceUser, 0, nil)

	assert.Equal(t, 1, q.Len())
	assert.Equal(t, 5, q.TotalCharacters())
}

func TestManager_SeedsIDCounterFromArchive(t *testing.T) {
	archiveMax := func(ctx context.Context, botID, correspondentID string) (int64, error) {
		return 41, nil
	}
	m := NewManager("bot1", Config{MaxMessages: 10, MaxCharacters: 1000, MaxDays: 30, MaxCharactersSingleMessage: 100}, archiveMax, nil)

	msg := m.AddMessage(context.Background(), "alice", "hi", sender("alice"), domain.SourceUser, 0, nil)

	assert.Equal(t, int64(42), msg.ID)
}

func TestManager_CallbacksFireForNewMessages(t *testing.T) {
	m := NewManager("bot1", Config{MaxMessages: 10, MaxCharacters: 1000, MaxDays: 30, MaxCharactersSingleMessage: 100}, nil, nil)

	done := make(chan domain.Message, 1)
	m.RegisterCallback(func(botID, correspondentID string, msg domain.Message) {
		done <- msg
	})

	m.AddMessage(context.Background(), "alice", "hi", sender("alice"), domain.SourceUser, 0, nil)

	msg := <-done
	assert.Equal(t, "hi", msg.Content)
}

func TestManager_DispatchPreservesEnqueueOrder(t *testing.T) {
	m := NewManager("bot1", Config{MaxMessages: 100, MaxCharacters: 10000, MaxDays: 30, MaxCharactersSingleMessage: 100}, nil, nil)

	received := make(chan string, 10)
	m.RegisterCallback(func(botID, correspondentID string, msg domain.Message) {
		received <- msg.Content
	})

	ctx := context.Background()
	for _, content := range []string{"one", "two", "three"} {
		m.AddMessage(ctx, "alice", content, sender("alice"), domain.SourceUser, 0, nil)
	}

	assert.Equal(t, "one", <-received)
	assert.Equal(t, "two", <-received)
	assert.Equal(t, "three", <-received)
}

func TestManager_CloseStopsDispatch(t *testing.T) {
	m := NewManager("bot1", Config{MaxMessages: 10, MaxCharacters: 1000, MaxDays: 30, MaxCharactersSingleMessage: 100}, nil, nil)

	received := make(chan string, 1)
	m.RegisterCallback(func(botID, correspondentID string, msg domain.Message) {
		received <- msg.Content
	})

	ctx := context.Background()
	m.GetOrCreateQueue(ctx, "alice")
	m.Close()

	msg := m.AddMessage(ctx, "alice", "late", sender("alice"), domain.SourceUser, 0, nil)
	assert.Equal(t, "late", msg.Content, "enqueue still succeeds after Close")

	select {
	case content := <-received:
		t.Fatalf("unexpected dispatch after Close: %q", content)
	default:
	}
}
