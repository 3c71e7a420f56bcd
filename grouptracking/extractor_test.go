package grouptracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AzielCF/chatbot-platform/domain"
)

func TestStripCodeFence(t *testing.T) {
	fenced := "```json\n[{\"task_title\":\"x\"}]\n```"
	assert.Equal(t, `[{"task_title":"x"}]`, stripCodeFence(fenced))

	bare := "```\n[]\n```"
	assert.Equal(t, "[]", stripCodeFence(bare))

	plain := `[{"task_title":"x"}]`
	assert.Equal(t, plain, stripCodeFence(plain))
}

func TestParseActionableItems_ToleratesFence(t *testing.T) {
	items, err := parseActionableItems("```json\n[{\"task_title\":\"Pay rent\",\"timestamp_deadline\":\"20260215T120000\"}]\n```")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Pay rent", items[0].TaskTitle)
}

func TestParseActionableItems_EmptyArray(t *testing.T) {
	items, err := parseActionableItems("[]")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestParseActionableItems_RejectsProse(t *testing.T) {
	_, err := parseActionableItems("There is nothing actionable in this transcript.")
	assert.Error(t, err)
}

func TestWithGroupName(t *testing.T) {
	items := withGroupName([]domain.ActionableItem{
		{TaskTitle: "one"},
		{TaskTitle: "two", GroupDisplayName: "stale"},
	}, "Building 4")

	require.Len(t, items, 2)
	assert.Equal(t, "Building 4", items[0].GroupDisplayName)
	assert.Equal(t, "Building 4", items[1].GroupDisplayName)
}
