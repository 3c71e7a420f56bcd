package llmprovider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIProvider adapts openai-go/v3 to the Provider interface: a
// single blocking text completion, no tool calls, no multimodal.
type OpenAIProvider struct{}

func NewOpenAIProvider() Provider { return &OpenAIProvider{} }

func (p *OpenAIProvider) Chat(ctx context.Context, apiKey, model string, temperature float64, req ChatRequest) (string, Usage, error) {
	if apiKey == "" {
		return "", Usage{}, fmt.Errorf("llmprovider: openai call with no api key")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	for _, t := range req.History {
		if t.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(t.Content))
		} else {
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}
	if req.UserText != "" {
		messages = append(messages, openai.UserMessage(req.UserText))
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(temperature),
	}

	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", Usage{}, err
	}
	if len(completion.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("llmprovider: openai returned no choices")
	}

	usage := extractOpenAIUsage(completion.Usage)
	return completion.Choices[0].Message.Content, usage, nil
}

// extractOpenAIUsage reads the provider-specific
// `prompt_tokens_details.cached_tokens` location.
func extractOpenAIUsage(u openai.CompletionUsage) Usage {
	return Usage{
		InputTokens:       int(u.PromptTokens),
		OutputTokens:      int(u.CompletionTokens),
		CachedInputTokens: int(u.PromptTokensDetails.CachedTokens),
		Extracted:         u.PromptTokens > 0 || u.CompletionTokens > 0,
	}
}
