package deliveryqueue

import (
	"context"
	"fmt"

	"github.com/AzielCF/chatbot-platform/domain"
)

// TextProcessor sends content as a plain text message to the bot's own
// user JID.
type TextProcessor struct{}

func (TextProcessor) Process(ctx context.Context, job domain.DeliveryJob, session Session) error {
	text, ok := job.Content.(string)
	if !ok {
		return fmt.Errorf("deliveryqueue: text job %s has non-string content", job.MessageID)
	}
	_, err := session.SendMessage(ctx, session.UserJID(), text)
	return err
}
