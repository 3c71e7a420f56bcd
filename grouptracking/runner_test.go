package grouptracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterWindow_BoundsAndDedup(t *testing.T) {
	start := time.UnixMilli(1000)
	end := time.UnixMilli(2000)

	raw := []HistoricMessage{
		{ProviderMessageID: "m41", OriginatingTimeMs: 1000}, // at start, excluded (start is exclusive)
		{ProviderMessageID: "m42", OriginatingTimeMs: 1500}, // in window but deduplicated
		{ProviderMessageID: "m43", OriginatingTimeMs: 1600},
		{ProviderMessageID: "m44", OriginatingTimeMs: 2000}, // at end, included (end is inclusive)
		{ProviderMessageID: "m45", OriginatingTimeMs: 2001}, // after end
	}
	dedup := map[string]struct{}{"m42": {}}

	out := filterWindow(raw, start, end, dedup)

	require.Len(t, out, 2)
	assert.Equal(t, "m43", out[0].ProviderMessageID)
	assert.Equal(t, "m44", out[1].ProviderMessageID)
}

func TestFilterWindow_KeepsMessagesWithoutProviderID(t *testing.T) {
	start := time.UnixMilli(0)
	end := time.UnixMilli(5000)

	out := filterWindow([]HistoricMessage{{OriginatingTimeMs: 100}}, start, end, map[string]struct{}{})
	assert.Len(t, out, 1)
}

func TestToDomainMessages_AttachesGroupAndOrder(t *testing.T) {
	raw := []HistoricMessage{
		{ProviderMessageID: "a", Content: "first", OriginatingTimeMs: 10},
		{ProviderMessageID: "b", Content: "second", OriginatingTimeMs: 20},
	}

	out := toDomainMessages(raw, "group1", "My Group")

	require.Len(t, out, 2)
	assert.Equal(t, int64(0), out[0].ID)
	assert.Equal(t, int64(1), out[1].ID)
	require.NotNil(t, out[0].Group)
	assert.Equal(t, "group1", out[0].Group.Identifier)
	assert.Equal(t, "My Group", out[0].Group.DisplayName)
	assert.Equal(t, "a", out[0].ProviderMessageID)
}
