package autoreply

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/llmprovider"
	"github.com/AzielCF/chatbot-platform/pkg/queue"
)

// Sender replies through the bot's chat provider; satisfied by
// *bridge.Client. Named narrowly so this package never imports bridge.
type Sender interface {
	SendMessage(ctx context.Context, recipient, content string) (string, error)
}

// Feature is the Automatic Bot Reply handler registered with a
// session's message fan-out.
type Feature struct {
	botID  string
	cfg    domain.AutomaticBotReplyFeature
	ctxCfg domain.ContextConfig
	queues *queue.Manager
	sender Sender
	llm    *llmprovider.Client
	log    *logrus.Entry
}

func NewFeature(botID string, cfg domain.AutomaticBotReplyFeature, ctxCfg domain.ContextConfig, queues *queue.Manager, sender Sender, llm *llmprovider.Client, log *logrus.Logger) *Feature {
	var entry *logrus.Entry
	if log != nil {
		entry = log.WithField("bot_id", botID).WithField("feature", "automatic_bot_reply")
	}
	return &Feature{botID: botID, cfg: cfg, ctxCfg: ctxCfg, queues: queues, sender: sender, llm: llm, log: entry}
}

// HandleMessage implements session.MessageHandler. Only SourceUser
// messages reach here (the session filters bot/user_outgoing before
// fan-out).
func (f *Feature) HandleMessage(ctx context.Context, correspondentID string, msg domain.Message, group *domain.Group) {
	if !f.cfg.Enabled {
		return
	}

	identifiers := append([]string{msg.Sender.Identifier}, msg.Sender.AlternateIdentifiers...)
	var result WhitelistResult
	if group != nil {
		groupIdentifiers := append([]string{group.Identifier, group.DisplayName}, group.AlternateIdentifiers...)
		candidates := append(append([]string{}, identifiers...), groupIdentifiers...)
		result = CheckWhitelist(candidates, f.cfg.RespondToWhitelistGroup)
	} else {
		result = CheckWhitelist(identifiers, f.cfg.RespondToWhitelist)
	}
	if !result.Allowed {
		return
	}

	history := f.retrieveHistory(correspondentID)
	turns := ToChatTurns(history)

	reply, err := f.llm.Chat(ctx, llmprovider.ChatRequest{
		SystemPrompt: f.cfg.ChatSystemPrompt,
		History:      turns,
		UserText:     msg.Content,
	})
	if err != nil {
		if f.log != nil {
			f.log.WithError(err).Warn("automatic bot reply: llm call failed")
		}
		return
	}

	recipient := msg.Sender.Identifier
	if group != nil {
		recipient = group.Identifier
	}
	if _, err := f.sender.SendMessage(ctx, recipient, reply); err != nil && f.log != nil {
		f.log.WithError(err).Warn("automatic bot reply: send failed")
	}
	// The outgoing message's echo re-enters through the bridge client
	// and is classified `bot`; no local history write here.
}

// retrieveHistory gathers the bounded chat history: one correspondent's
// queue, or every live queue merged and re-sorted when the bot is
// configured for a shared context.
func (f *Feature) retrieveHistory(correspondentID string) []domain.Message {
	var messages []domain.Message
	if f.ctxCfg.SharedContext {
		for _, q := range f.queues.Queues() {
			messages = append(messages, q.Messages()...)
		}
		sort.Slice(messages, func(i, j int) bool { return messages[i].AcceptedTimeMs < messages[j].AcceptedTimeMs })
	} else {
		messages = f.queues.GetOrCreateQueue(context.Background(), correspondentID).Messages()
	}
	return TrimHistory(messages, f.ctxCfg, time.Now())
}
