// Package autoreply implements the automatic bot reply feature: a
// whitelist-gated, history-aware LLM chat handler subscribed to a
// session's inbound message fan-out.
package autoreply

import "strings"

// WhitelistResult is the outcome of a whitelist check; the matched
// pair makes allow/deny decisions traceable in logs.
type WhitelistResult struct {
	Allowed               bool
	MatchedIdentifier     string
	MatchedWhitelistEntry string
}

// CheckWhitelist matches every candidate identifier against every
// whitelist entry by substring containment in either direction — an
// entry configured as a display name fragment should match a longer
// provider-assigned identifier and vice versa. An empty whitelist
// always denies.
func CheckWhitelist(identifiers, whitelist []string) WhitelistResult {
	if len(whitelist) == 0 {
		return WhitelistResult{}
	}
	for _, id := range identifiers {
		if id == "" {
			continue
		}
		for _, entry := range whitelist {
			if entry == "" {
				continue
			}
			if strings.Contains(id, entry) || strings.Contains(entry, id) {
				return WhitelistResult{Allowed: true, MatchedIdentifier: id, MatchedWhitelistEntry: entry}
			}
		}
	}
	return WhitelistResult{}
}
