package bridge

import (
	"context"

	"github.com/AzielCF/chatbot-platform/domain"
)

// HistoricMessage is one already-classified message returned by a
// history fetch, exported for
// grouptracking.Runner without leaking the wire-frame types.
type HistoricMessage struct {
	ProviderMessageID string
	Sender            domain.Sender
	Content           string
	OriginatingTimeMs int64
	Source            domain.MessageSource
}

// FetchHistory wraps FetchHistoricMessages and classifies each item
// bot-or-user the same way the WS inbound path does.
func (c *Client) FetchHistory(ctx context.Context, groupID string, limit int) ([]HistoricMessage, error) {
	raw, err := c.FetchHistoricMessages(ctx, groupID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]HistoricMessage, 0, len(raw))
	for _, m := range raw {
		sender := domain.Sender{Identifier: m.Sender, DisplayName: m.DisplayName}
		if m.ActualSender != nil {
			sender.AlternateIdentifiers = m.ActualSender.AlternateIdentifiers
		}
		out = append(out, HistoricMessage{
			ProviderMessageID: m.ProviderMessageID,
			Sender:            sender,
			Content:           m.Message,
			OriginatingTimeMs: m.OriginatingTime,
			Source:            c.classify(m),
		})
	}
	return out, nil
}
