// Package llmtoken implements token tracking and quota enforcement:
// every LLM call's usage is costed against a per-tier pricing
// table and atomically charged to the calling owner, who is disabled
// (and all of whose bots are stopped) the instant their rolling quota
// is exceeded.
package llmtoken

import (
	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/llmprovider"
)

// ComputeCost prices one call:
//
//	uncached = max(0, input - cached)
//	cost = uncached*r_in + cached*r_cached + output*r_out, all /1e6
func ComputeCost(rate domain.TokenMenuTier, usage llmprovider.Usage) float64 {
	uncached := usage.InputTokens - usage.CachedInputTokens
	if uncached < 0 {
		uncached = 0
	}
	total := float64(uncached)*rate.InputRate +
		float64(usage.CachedInputTokens)*rate.CachedRate +
		float64(usage.OutputTokens)*rate.OutputRate
	return total / 1_000_000
}

// RateForTier selects the pricing row for a tier from the global menu.
func RateForTier(menu domain.TokenMenu, tier domain.LLMTier) domain.TokenMenuTier {
	if tier == domain.TierLow {
		return menu.Low
	}
	return menu.High
}
