package bridge

import (
	"github.com/AzielCF/chatbot-platform/domain"
)

// handleFrame dispatches one decoded wire frame: either a status_update
// (drives the connection state machine) or a messages batch (classified per
// message and handed to the inbound handler).
func (c *Client) handleFrame(frame wireFrame) {
	switch frame.Type {
	case "status_update":
		c.handleStatusUpdate(frame.Status)
	case "messages":
		for _, m := range frame.Messages {
			c.handleWireMessage(m)
		}
	}
}

func (c *Client) handleStatusUpdate(status *wireStatusPayload) {
	if status == nil {
		return
	}

	switch status.Status {
	case "qr_pending":
		c.mu.Lock()
		c.qr = status.QR
		c.mu.Unlock()
		c.setStatus(domain.StatusQRPending)
	case "connected":
		c.mu.Lock()
		c.userJID = status.UserJID
		c.qr = ""
		c.mu.Unlock()
		c.setStatus(domain.StatusConnected)
	case "disconnected":
		c.mu.Lock()
		c.userJID = ""
		c.mu.Unlock()
		c.setStatus(domain.StatusDisconnected)
	case "auth_failure", "terminated":
		c.setStatus(domain.StatusTerminated)
		if c.onSessionEnd != nil {
			c.onSessionEnd(c.botID)
		}
	}
}

// handleWireMessage classifies one inbound bridge message:
//
//  1. If its provider_message_id matches a message this client sent,
//     classify it bot (echo suppression by id).
//  2. Else if it matches a pending echo (recipient+content within TTL),
//     classify it bot (echo suppression before the id is known).
//  3. Else if direction is "outgoing" (sent from the owner's own linked
//     device, not through this client), classify it user_outgoing.
//  4. Else classify it user.
//
// Group messages are dropped early when a group filter is installed and
// rejects the group (feature-disabled groups never reach the queue).
func (c *Client) handleWireMessage(m wireMessage) {
	var group *domain.Group
	if m.Group != nil {
		group = &domain.Group{
			Identifier:           m.Group.Identifier,
			DisplayName:          m.Group.DisplayName,
			AlternateIdentifiers: m.Group.AlternateIdentifiers,
		}
		if c.isGroupAllowed != nil && !c.isGroupAllowed(group.Identifier) {
			return
		}
	}

	source := c.classify(m)

	sender := domain.Sender{Identifier: m.Sender, DisplayName: m.DisplayName}
	if m.ActualSender != nil {
		sender.AlternateIdentifiers = m.ActualSender.AlternateIdentifiers
	}

	correspondentID := m.Sender
	if group != nil {
		correspondentID = group.Identifier
	}

	if c.onInbound == nil {
		return
	}
	c.onInbound(InboundMessage{
		CorrespondentID:   correspondentID,
		Content:           m.Message,
		Sender:            sender,
		Source:            source,
		Group:             group,
		OriginatingTime:   m.OriginatingTime,
		ProviderMessageID: m.ProviderMessageID,
	})
}

func (c *Client) classify(m wireMessage) domain.MessageSource {
	if m.ProviderMessageID != "" && c.IsBotMessage(m.ProviderMessageID) {
		return domain.SourceBot
	}
	if c.consumePendingEcho(m.Sender, m.Message) {
		return domain.SourceBot
	}
	if m.Direction == "outgoing" {
		return domain.SourceUserOutgoing
	}
	return domain.SourceUser
}
