package autoreply

import (
	"time"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/llmprovider"
)

// TrimHistory bounds a retrieved message slice by age, then total
// characters, then message count — the same eviction order the
// correspondent queue applies, here read-side on chat history. Each
// turn is truncated to MaxCharactersSingleMessage before the trim runs.
func TrimHistory(messages []domain.Message, cfg domain.ContextConfig, now time.Time) []domain.Message {
	trimmed := make([]domain.Message, len(messages))
	copy(trimmed, messages)

	if cfg.MaxCharactersSingleMessage > 0 {
		for i := range trimmed {
			if len(trimmed[i].Content) > cfg.MaxCharactersSingleMessage {
				trimmed[i].Content = trimmed[i].Content[:cfg.MaxCharactersSingleMessage]
			}
		}
	}

	if cfg.MaxDays > 0 {
		cutoff := now.Add(-time.Duration(cfg.MaxDays) * 24 * time.Hour)
		i := 0
		for i < len(trimmed) && time.UnixMilli(trimmed[i].AcceptedTimeMs).Before(cutoff) {
			i++
		}
		trimmed = trimmed[i:]
	}

	if cfg.MaxCharacters > 0 {
		total := 0
		for _, m := range trimmed {
			total += len(m.Content)
		}
		for len(trimmed) > 0 && total > cfg.MaxCharacters {
			total -= len(trimmed[0].Content)
			trimmed = trimmed[1:]
		}
	}

	if cfg.MaxMessages > 0 && len(trimmed) > cfg.MaxMessages {
		trimmed = trimmed[len(trimmed)-cfg.MaxMessages:]
	}

	return trimmed
}

// ToChatTurns renders a trimmed history as LLM chat turns: bot-sourced
// messages become the "assistant" role, everything else "user" —
// user_outgoing (the owner typing on their own phone) reads to the
// model as if the user said it directly.
func ToChatTurns(messages []domain.Message) []llmprovider.ChatTurn {
	turns := make([]llmprovider.ChatTurn, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Source == domain.SourceBot {
			role = "assistant"
		}
		turns = append(turns, llmprovider.ChatTurn{Role: role, Content: m.Content})
	}
	return turns
}
