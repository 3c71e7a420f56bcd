package lifecycle

import (
	"context"

	"github.com/AzielCF/chatbot-platform/autoreply"
	"github.com/AzielCF/chatbot-platform/bridge"
	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/ingestion"
	"github.com/AzielCF/chatbot-platform/llmprovider"
	"github.com/AzielCF/chatbot-platform/pkg/queue"
	"github.com/AzielCF/chatbot-platform/session"
)

// instance is one bot's fully wired running composition: a bridge
// client, its correspondent queue manager, and a session tying the
// ingestion drainer and (when enabled) the automatic-bot-reply feature
// to the provider's inbound fan-out.
type instance struct {
	bot          domain.Bot
	bridgeClient *bridge.Client
	queues       *queue.Manager
	sess         *session.Session
}

// newInstance builds — but does not start — every component a running
// bot needs.
func (s *Service) newInstance(bot domain.Bot) (*instance, error) {
	queues := queue.NewManager(bot.BotID, bot.QueueConfig, s.archive.MaxID, s.log)

	groupAllowed := s.groupFilterFor(bot)

	botID := bot.BotID
	client := bridge.NewClient(botID, bot.ChatProviderConfig.BridgeURL, s.log,
		bridge.WithGroupFilter(groupAllowed),
		bridge.WithStatusChange(func(id string, status domain.BotStatus) {
			s.onStatusChange(id, status)
		}),
		bridge.WithSessionEnd(func(id string) {
			if s.log != nil {
				s.log.WithField("bot_id", id).Warn("lifecycle: bridge session ended permanently")
			}
		}),
		bridge.WithInboundHandler(func(msg bridge.InboundMessage) {
			queues.AddMessage(context.Background(), msg.CorrespondentID, msg.Content, msg.Sender, msg.Source, msg.OriginatingTime, msg.Group)
		}),
	)

	sess := session.New(botID, queues, client, s.log)

	sess.RegisterService(ingestion.New(botID, bot.ChatProviderConfig.ProviderName, queues, s.archive, s.log))

	if bot.Features.AutomaticBotReply.Enabled {
		llm, err := llmprovider.NewClient(bot.LLMConfigs.High, domain.TierHigh,
			s.tokens.Callback(bot.OwnerUserID, botID, "automatic_bot_reply"))
		if err != nil {
			return nil, err
		}
		sess.RegisterMessageHandler(autoreply.NewFeature(botID, bot.Features.AutomaticBotReply, bot.ContextConfig, queues, client, llm, s.log))
	}

	return &instance{bot: bot, bridgeClient: client, queues: queues, sess: sess}, nil
}

// groupFilterFor rejects every group message unless the bot either
// tracks that group periodically or whitelists group auto-replies at
// all — a bot with neither feature configured for groups never pays
// to classify or queue group traffic.
func (s *Service) groupFilterFor(bot domain.Bot) func(groupID string) bool {
	tracked := make(map[string]struct{}, len(bot.Features.PeriodicGroupTracking.Groups))
	for _, g := range bot.Features.PeriodicGroupTracking.Groups {
		tracked[g.GroupIdentifier] = struct{}{}
	}
	groupAutoReply := bot.Features.AutomaticBotReply.Enabled && len(bot.Features.AutomaticBotReply.RespondToWhitelistGroup) > 0

	return func(groupID string) bool {
		if groupAutoReply {
			return true
		}
		_, ok := tracked[groupID]
		return ok
	}
}

// onStatusChange wires connection state into the other services: a bot
// reaching `connected` arms its delivery queue and schedules its
// tracking jobs; one going `disconnected` or `terminated` parks the
// owner's active delivery items in holding and pauses tracking.
func (s *Service) onStatusChange(botID string, status domain.BotStatus) {
	s.mu.Lock()
	inst, ok := s.running[botID]
	s.mu.Unlock()
	if !ok {
		return
	}

	ctx := context.Background()
	switch status {
	case domain.StatusConnected:
		if err := s.delivery.OnConnect(ctx, inst.bot.OwnerUserID); err != nil && s.log != nil {
			s.log.WithError(err).WithField("bot_id", botID).Warn("lifecycle: delivery OnConnect failed")
		}
		if inst.bot.Features.PeriodicGroupTracking.Enabled && !s.scheduler.HasJobsFor(botID) {
			if err := s.scheduler.UpdateJobs(botID, inst.bot.Features.PeriodicGroupTracking.Groups, inst.bot.Profile.Timezone); err != nil && s.log != nil {
				s.log.WithError(err).WithField("bot_id", botID).Warn("lifecycle: failed to schedule tracking jobs")
			}
		}
	case domain.StatusDisconnected, domain.StatusTerminated:
		if err := s.delivery.OnDisconnect(ctx, inst.bot.OwnerUserID); err != nil && s.log != nil {
			s.log.WithError(err).WithField("bot_id", botID).Warn("lifecycle: delivery OnDisconnect failed")
		}
		s.scheduler.StopTrackingJobs(botID)
	}
}

// start begins the provider's listen loop and every registered service.
func (i *instance) start(ctx context.Context) error {
	if err := i.bridgeClient.Initialize(ctx, i.bot.ChatProviderConfig); err != nil {
		return err
	}
	return i.sess.Start(ctx)
}

// stop halts the session (draining before stop) and tears down the
// bridge session when cleanup is requested.
func (i *instance) stop(ctx context.Context, cleanup bool) error {
	return i.sess.Stop(ctx, cleanup)
}
