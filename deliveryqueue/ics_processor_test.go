package deliveryqueue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/AzielCF/chatbot-platform/domain"
)

func TestEscapeICSText(t *testing.T) {
	assert.Equal(t, `dinner\, 8pm\; bring\\stuff\nok`, escapeICSText("dinner, 8pm; bring\\stuff\nok"))
	assert.Equal(t, "plain", escapeICSText("plain"))
}

func TestRenderICS_SingleEventEndingAtDeadline(t *testing.T) {
	item := domain.ActionableItem{
		TaskTitle:         "Pay rent, urgently",
		TaskDescription:   "Transfer before noon",
		TimestampDeadline: "20260215T120000",
	}

	out, err := renderICS(item)
	require.NoError(t, err)
	text := string(out)

	assert.Equal(t, 1, strings.Count(text, "BEGIN:VEVENT"))
	assert.Contains(t, text, "DTEND:20260215T120000\r\n")
	assert.Contains(t, text, "DTSTART:20260215T110000\r\n")
	assert.Contains(t, text, `SUMMARY:Pay rent\, urgently`)
	assert.Contains(t, text, "METHOD:PUBLISH\r\n")
	assert.Contains(t, text, "STATUS:CONFIRMED\r\n")
	assert.Contains(t, text, "END:VCALENDAR\r\n")
}

func TestRenderICS_RejectsMalformedDeadline(t *testing.T) {
	_, err := renderICS(domain.ActionableItem{TaskTitle: "x", TimestampDeadline: "tomorrow"})
	assert.Error(t, err)
}

func TestRenderVisualCard(t *testing.T) {
	card := renderVisualCard(domain.ActionableItem{
		TaskTitle:        "Pay rent",
		TaskDescription:  "Transfer before noon",
		TextDeadline:     "Sunday noon",
		GroupDisplayName: "Building 4 tenants",
	})

	assert.Contains(t, card, "*Pay rent*")
	assert.Contains(t, card, "Deadline: Sunday noon")
	assert.Contains(t, card, "From: Building 4 tenants")
}

func TestDecodeActionableItem_PassesThroughLiveStruct(t *testing.T) {
	item := domain.ActionableItem{TaskTitle: "Pay rent"}
	decoded, err := decodeActionableItem(item)
	require.NoError(t, err)
	assert.Equal(t, item, decoded)
}

func TestDecodeActionableItem_DecodesBSONReadBack(t *testing.T) {
	// A job read back from the store carries its content as bson.D.
	raw, err := bson.Marshal(domain.ActionableItem{TaskTitle: "Pay rent", TimestampDeadline: "20260215T120000"})
	require.NoError(t, err)
	var asDoc bson.D
	require.NoError(t, bson.Unmarshal(raw, &asDoc))

	decoded, err := decodeActionableItem(asDoc)
	require.NoError(t, err)
	assert.Equal(t, "Pay rent", decoded.TaskTitle)
	assert.Equal(t, "20260215T120000", decoded.TimestampDeadline)
}
