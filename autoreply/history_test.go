package autoreply

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AzielCF/chatbot-platform/domain"
)

func historyMsg(id int64, content string, at time.Time, source domain.MessageSource) domain.Message {
	return domain.Message{ID: id, Content: content, AcceptedTimeMs: at.UnixMilli(), Source: source}
}

func TestTrimHistory_TruncatesIndividualTurns(t *testing.T) {
	now := time.Now()
	cfg := domain.ContextConfig{MaxCharactersSingleMessage: 4}

	out := TrimHistory([]domain.Message{historyMsg(1, "abcdefgh", now, domain.SourceUser)}, cfg, now)

	require.Len(t, out, 1)
	assert.Equal(t, "abcd", out[0].Content)
}

func TestTrimHistory_DropsMessagesOlderThanMaxDays(t *testing.T) {
	now := time.Now()
	cfg := domain.ContextConfig{MaxDays: 1}

	out := TrimHistory([]domain.Message{
		historyMsg(1, "old", now.Add(-48*time.Hour), domain.SourceUser),
		historyMsg(2, "fresh", now.Add(-1*time.Hour), domain.SourceUser),
	}, cfg, now)

	require.Len(t, out, 1)
	assert.Equal(t, "fresh", out[0].Content)
}

func TestTrimHistory_EnforcesCharacterBudgetOldestFirst(t *testing.T) {
	now := time.Now()
	cfg := domain.ContextConfig{MaxCharacters: 8}

	out := TrimHistory([]domain.Message{
		historyMsg(1, "aaaa", now, domain.SourceUser),
		historyMsg(2, "bbbb", now, domain.SourceUser),
		historyMsg(3, "cccc", now, domain.SourceUser),
	}, cfg, now)

	require.Len(t, out, 2)
	assert.Equal(t, "bbbb", out[0].Content)
	assert.Equal(t, "cccc", out[1].Content)
}

func TestTrimHistory_KeepsNewestUpToMaxMessages(t *testing.T) {
	now := time.Now()
	cfg := domain.ContextConfig{MaxMessages: 2}

	out := TrimHistory([]domain.Message{
		historyMsg(1, "one", now, domain.SourceUser),
		historyMsg(2, "two", now, domain.SourceUser),
		historyMsg(3, "three", now, domain.SourceUser),
	}, cfg, now)

	require.Len(t, out, 2)
	assert.Equal(t, "two", out[0].Content)
}

func TestToChatTurns_MapsSourcesToRoles(t *testing.T) {
	now := time.Now()
	turns := ToChatTurns([]domain.Message{
		historyMsg(1, "hi", now, domain.SourceUser),
		historyMsg(2, "hello!", now, domain.SourceBot),
		historyMsg(3, "from my phone", now, domain.SourceUserOutgoing),
	})

	require.Len(t, turns, 3)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "assistant", turns[1].Role)
	assert.Equal(t, "user", turns[2].Role)
}
