// Package grouptracking implements the Group-Tracking Runner + History
// Service and Scheduler: windowed extraction of
// group messages into two-stage LLM-refined action items, delivered to
// the bot owner via the delivery queue.
package grouptracking

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/llmprovider"
)

// Extractor runs the two-stage LLM refinement: a cheap extraction
// pass, then a refinement pass that may be dropped on failure.
type Extractor struct {
	low  *llmprovider.Client
	high *llmprovider.Client
}

func NewExtractor(low, high *llmprovider.Client) *Extractor {
	return &Extractor{low: low, high: high}
}

type rawMessageForPrompt struct {
	When    string `json:"when"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// Extract runs Stage 1 (low tier, raw JSON extraction) then Stage 2
// (high tier, refinement); on any Stage 2 failure it falls back to the
// Stage 1 result verbatim.
func (e *Extractor) Extract(ctx context.Context, messages []domain.Message, timezone, language, groupDisplayName string) ([]domain.ActionableItem, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}

	formatted := make([]rawMessageForPrompt, 0, len(messages))
	for _, m := range messages {
		formatted = append(formatted, rawMessageForPrompt{
			When:    time.UnixMilli(m.OriginatingTimeMs).In(loc).Format(time.RFC3339),
			Sender:  m.Sender.DisplayName,
			Content: m.Content,
		})
	}
	payload, err := json.Marshal(formatted)
	if err != nil {
		return nil, err
	}

	stage1SystemPrompt := fmt.Sprintf(
		"You extract actionable calendar items from a chat transcript. Respond in %s. "+
			"Return a JSON array of objects with task_title, task_description, text_deadline, "+
			"timestamp_deadline (YYYYMMDDTHHMMSS local time), and relevant_task_messages "+
			"(array of {sender, content}). Return [] if there is nothing actionable.", language)

	stage1Text, err := e.low.Chat(ctx, llmprovider.ChatRequest{
		SystemPrompt: stage1SystemPrompt,
		UserText:     string(payload),
	})
	if err != nil {
		return nil, fmt.Errorf("grouptracking: stage 1 extraction failed: %w", err)
	}

	stage1Items, err := parseActionableItems(stage1Text)
	if err != nil {
		return nil, fmt.Errorf("grouptracking: stage 1 produced unparsable JSON: %w", err)
	}

	stage2Text, err := e.high.Chat(ctx, llmprovider.ChatRequest{
		SystemPrompt: "Refine the following actionable calendar items: merge duplicates, " +
			"sharpen titles and deadlines, and return the same JSON array shape unchanged.",
		UserText: stage1Text,
	})
	if err != nil {
		return withGroupName(stage1Items, groupDisplayName), nil
	}

	stage2Items, err := parseActionableItems(stage2Text)
	if err != nil {
		return withGroupName(stage1Items, groupDisplayName), nil
	}

	return withGroupName(stage2Items, groupDisplayName), nil
}

func withGroupName(items []domain.ActionableItem, groupDisplayName string) []domain.ActionableItem {
	for i := range items {
		items[i].GroupDisplayName = groupDisplayName
	}
	return items
}

// parseActionableItems tolerates a code-fenced JSON block
// (```json ... ```) around the array.
func parseActionableItems(text string) ([]domain.ActionableItem, error) {
	cleaned := stripCodeFence(text)

	var items []domain.ActionableItem
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx != -1 {
		firstLine := trimmed[:idx]
		if !strings.Contains(firstLine, "{") && !strings.Contains(firstLine, "[") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
