// Package llmprovider is the provider-neutral LLM factory: an explicit
// registry populated at startup, one struct per vendor implementing a
// shared interface, trimmed to the single blocking chat-completion
// operation every caller needs.
package llmprovider

import (
	"context"

	"github.com/AzielCF/chatbot-platform/domain"
)

// ChatTurn is one message in a conversation handed to the LLM.
type ChatTurn struct {
	Role    string // "user" or "assistant"
	Content string
}

// ChatRequest bundles one completion call's inputs.
type ChatRequest struct {
	SystemPrompt string
	History      []ChatTurn
	UserText     string
}

// Usage carries the raw token counts a provider reported for one call,
// before cost computation.
type Usage struct {
	InputTokens       int
	CachedInputTokens int
	OutputTokens      int
	// Extracted reports whether the response carried usage numbers;
	// false takes the "log a warning and record nothing" path.
	Extracted bool
}

// Provider is one vendor's chat-completion client.
type Provider interface {
	Chat(ctx context.Context, apiKey, model string, temperature float64, req ChatRequest) (text string, usage Usage, err error)
}

// Factory constructs a Provider by name, e.g. "openai" or "gemini".
type Factory func() Provider

var registry = map[string]Factory{}

// RegisterProvider populates the registry at startup.
func RegisterProvider(name string, factory Factory) {
	registry[name] = factory
}

// UsageCallback is invoked by Client.Chat after every completion,
// regardless of success, so the caller can route usage into token
// tracking without every feature package importing llmtoken.
type UsageCallback func(ctx context.Context, tier domain.LLMTier, usage Usage)

// Client wraps a single looked-up Provider with the tier/config it was
// built for and the usage callback every LLM call must route through.
type Client struct {
	provider Provider
	cfg      domain.LLMProviderConfig
	tier     domain.LLMTier
	onUsage  UsageCallback
}

// NewClient looks up cfg.ProviderName in the registry and binds a tier.
func NewClient(cfg domain.LLMProviderConfig, tier domain.LLMTier, onUsage UsageCallback) (*Client, error) {
	factory, ok := registry[cfg.ProviderName]
	if !ok {
		return nil, &unknownProviderError{name: cfg.ProviderName}
	}
	return &Client{provider: factory(), cfg: cfg, tier: tier, onUsage: onUsage}, nil
}

type unknownProviderError struct{ name string }

func (e *unknownProviderError) Error() string { return "llmprovider: unknown provider " + e.name }

// Chat resolves the API key per api_key_source, calls the bound
// provider, and always invokes the usage callback before returning —
// the callback fires on every LLM call even on error,
// since a partially-billed call still must be accounted for if the
// vendor reports partial usage; providers report a zero Usage on
// hard failure and Extracted=false, which the callback logs and skips.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	apiKey := ResolveAPIKey(c.cfg)
	text, usage, err := c.provider.Chat(ctx, apiKey, c.cfg.Model, c.cfg.Temperature, req)
	if c.onUsage != nil {
		c.onUsage(ctx, c.tier, usage)
	}
	return text, err
}
