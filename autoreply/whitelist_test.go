package autoreply

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckWhitelist_EmptyWhitelistDenies(t *testing.T) {
	result := CheckWhitelist([]string{"12345@s.whatsapp.net"}, nil)
	assert.False(t, result.Allowed)
}

func TestCheckWhitelist_SubstringMatchesEitherDirection(t *testing.T) {
	// Whitelist entry shorter than the identifier.
	result := CheckWhitelist([]string{"12345@s.whatsapp.net"}, []string{"12345"})
	assert.True(t, result.Allowed)
	assert.Equal(t, "12345@s.whatsapp.net", result.MatchedIdentifier)
	assert.Equal(t, "12345", result.MatchedWhitelistEntry)

	// Identifier shorter than the whitelist entry.
	result = CheckWhitelist([]string{"Alice"}, []string{"Alice Smith"})
	assert.True(t, result.Allowed)
}

func TestCheckWhitelist_NoMatchDenies(t *testing.T) {
	result := CheckWhitelist([]string{"alice@s.whatsapp.net", "Alice"}, []string{"bob", "carol"})
	assert.False(t, result.Allowed)
	assert.Empty(t, result.MatchedIdentifier)
}

func TestCheckWhitelist_SkipsEmptyEntries(t *testing.T) {
	result := CheckWhitelist([]string{"", "alice"}, []string{"", "alice"})
	assert.True(t, result.Allowed)
	assert.Equal(t, "alice", result.MatchedIdentifier)
}
