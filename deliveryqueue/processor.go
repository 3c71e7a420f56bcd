// Package deliveryqueue implements the outbound delivery queue: a
// random-sample consumer that moves jobs through active,
// holding, and failed collections and hands each to a processor keyed
// by message_type.
package deliveryqueue

import (
	"context"

	"github.com/AzielCF/chatbot-platform/domain"
)

// Session is the narrow provider surface a processor needs to deliver
// a job; satisfied by *bridge.Client.
type Session interface {
	IsConnected() bool
	UserJID() string
	SendMessage(ctx context.Context, recipient, content string) (string, error)
	SendFile(ctx context.Context, recipient string, fileData []byte, filename, mimeType, caption string) (string, error)
}

// Processor delivers one job's content over an already-connected
// session.
type Processor interface {
	Process(ctx context.Context, job domain.DeliveryJob, session Session) error
}

// Registry resolves a Processor by the job's message_type tag.
type Registry map[domain.MessageType]Processor

func DefaultRegistry() Registry {
	return Registry{
		domain.MessageTypeText:              TextProcessor{},
		domain.MessageTypeICSActionableItem: ICSActionableItemProcessor{},
	}
}
