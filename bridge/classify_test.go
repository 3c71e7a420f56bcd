package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AzielCF/chatbot-platform/domain"
)

func TestClassify_SentIDCacheMarksBotEcho(t *testing.T) {
	c := NewClient("bot1", "http://bridge", nil)
	c.recordSentID("srv-123")

	source := c.classify(wireMessage{Direction: "outgoing", ProviderMessageID: "srv-123"})
	assert.Equal(t, domain.SourceBot, source)
}

func TestClassify_PendingEchoPromotesToBot(t *testing.T) {
	c := NewClient("bot1", "http://bridge", nil)
	c.recordPendingEcho("alice@s.whatsapp.net", "hello there")

	// The bridge failed to echo back the id; recipient+content still match.
	source := c.classify(wireMessage{
		Direction: "outgoing",
		Sender:    "alice@s.whatsapp.net",
		Message:   "hello there",
	})
	assert.Equal(t, domain.SourceBot, source)

	// The pending entry is consumed: an identical second event is the
	// owner typing the same text on their phone.
	source = c.classify(wireMessage{
		Direction: "outgoing",
		Sender:    "alice@s.whatsapp.net",
		Message:   "hello there",
	})
	assert.Equal(t, domain.SourceUserOutgoing, source)
}

func TestClassify_UnmatchedOutgoingIsUserOutgoing(t *testing.T) {
	c := NewClient("bot1", "http://bridge", nil)
	source := c.classify(wireMessage{Direction: "outgoing", Sender: "x", Message: "typed on phone"})
	assert.Equal(t, domain.SourceUserOutgoing, source)
}

func TestClassify_IncomingIsUser(t *testing.T) {
	c := NewClient("bot1", "http://bridge", nil)
	source := c.classify(wireMessage{Direction: "incoming", Sender: "x", Message: "hi"})
	assert.Equal(t, domain.SourceUser, source)
}

func TestHandleWireMessage_GroupFilterDrops(t *testing.T) {
	var delivered []InboundMessage
	c := NewClient("bot1", "http://bridge", nil,
		WithGroupFilter(func(groupID string) bool { return groupID == "allowed" }),
		WithInboundHandler(func(msg InboundMessage) { delivered = append(delivered, msg) }),
	)

	c.handleWireMessage(wireMessage{Direction: "incoming", Sender: "x", Message: "no", Group: &wireGroup{Identifier: "blocked"}})
	c.handleWireMessage(wireMessage{Direction: "incoming", Sender: "x", Message: "yes", Group: &wireGroup{Identifier: "allowed"}})

	require.Len(t, delivered, 1)
	assert.Equal(t, "yes", delivered[0].Content)
	assert.Equal(t, "allowed", delivered[0].CorrespondentID)
}

func TestHandleStatusUpdate_StateMachine(t *testing.T) {
	var transitions []domain.BotStatus
	c := NewClient("bot1", "http://bridge", nil,
		WithStatusChange(func(botID string, status domain.BotStatus) { transitions = append(transitions, status) }),
	)

	c.handleStatusUpdate(&wireStatusPayload{Status: "qr_pending", QR: "qr-data"})
	assert.Equal(t, domain.StatusQRPending, c.GetStatus())
	assert.Equal(t, "qr-data", c.QR())

	c.handleStatusUpdate(&wireStatusPayload{Status: "connected", UserJID: "me@s.whatsapp.net"})
	assert.Equal(t, domain.StatusConnected, c.GetStatus())
	assert.Empty(t, c.QR())
	assert.Equal(t, "me@s.whatsapp.net", c.UserJID())

	c.handleStatusUpdate(&wireStatusPayload{Status: "disconnected"})
	assert.Equal(t, domain.StatusDisconnected, c.GetStatus())
	assert.Empty(t, c.UserJID())

	assert.Equal(t, []domain.BotStatus{domain.StatusQRPending, domain.StatusConnected, domain.StatusDisconnected}, transitions)
}

func TestHandleStatusUpdate_AuthFailureFiresSessionEnd(t *testing.T) {
	ended := false
	c := NewClient("bot1", "http://bridge", nil,
		WithSessionEnd(func(botID string) { ended = true }),
	)

	c.handleStatusUpdate(&wireStatusPayload{Status: "auth_failure"})

	assert.Equal(t, domain.StatusTerminated, c.GetStatus())
	assert.True(t, ended)
}
