package llmprovider

import (
	"os"
	"strings"

	"github.com/AzielCF/chatbot-platform/domain"
)

// ResolveAPIKey implements the `api_key_source` switch: "environment"
// reads `<PROVIDER>_API_KEY` from the process environment, "explicit"
// uses the literal key stored on the config.
func ResolveAPIKey(cfg domain.LLMProviderConfig) string {
	if cfg.APIKeySource == domain.APIKeyExplicit {
		return cfg.APIKey
	}
	envVar := strings.ToUpper(cfg.ProviderName) + "_API_KEY"
	return os.Getenv(envVar)
}
