package llmprovider

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider adapts google.golang.org/genai to the Provider
// interface: a single blocking text completion, no explicit context
// caching and no tool declarations.
type GeminiProvider struct{}

func NewGeminiProvider() Provider { return &GeminiProvider{} }

func (p *GeminiProvider) Chat(ctx context.Context, apiKey, model string, temperature float64, req ChatRequest) (string, Usage, error) {
	if apiKey == "" {
		return "", Usage{}, fmt.Errorf("llmprovider: gemini call with no api key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return "", Usage{}, err
	}

	var genConfig *genai.GenerateContentConfig
	if req.SystemPrompt != "" {
		genConfig = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.SystemPrompt, ""),
			Temperature:       genai.Ptr(float32(temperature)),
		}
	} else {
		genConfig = &genai.GenerateContentConfig{Temperature: genai.Ptr(float32(temperature))}
	}

	var contents []*genai.Content
	for _, t := range req.History {
		role := genai.Role(genai.RoleUser)
		if t.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	if req.UserText != "" {
		contents = append(contents, genai.NewContentFromText(req.UserText, genai.RoleUser))
	}

	result, err := client.Models.GenerateContent(ctx, model, contents, genConfig)
	if err != nil {
		return "", Usage{}, err
	}
	if result == nil || len(result.Candidates) == 0 {
		return "", Usage{}, fmt.Errorf("llmprovider: gemini returned no candidates")
	}

	var text string
	for _, part := range result.Candidates[0].Content.Parts {
		text += part.Text
	}

	usage := extractGeminiUsage(result.UsageMetadata)
	return text, usage, nil
}

// extractGeminiUsage reads Gemini's usage_metadata block; a response
// without one yields Extracted=false. No second location is tried.
func extractGeminiUsage(u *genai.GenerateContentResponseUsageMetadata) Usage {
	if u == nil {
		return Usage{}
	}
	return Usage{
		InputTokens:       int(u.PromptTokenCount),
		OutputTokens:      int(u.CandidatesTokenCount),
		CachedInputTokens: int(u.CachedContentTokenCount),
		Extracted:         true,
	}
}
