package llmtoken

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/llmprovider"
	"github.com/AzielCF/chatbot-platform/repository"
)

// BotStopper stops every running bot an owner owns, used by the
// enforce-and-disable path. Implemented by
// lifecycle.Service; accepted here as a narrow interface so llmtoken
// never imports lifecycle (which itself depends on llmtoken for the
// usage callback wrapped around each bot's LLM clients — this breaks
// that import cycle).
type BotStopper interface {
	StopAllForOwner(ctx context.Context, userID string) error
}

// Service records usage, computes cost, and enforces the owner's
// rolling quota through a callback wrapped around every LLM client.
type Service struct {
	creds   *repository.CredentialsRepository
	tokens  *repository.TokenConsumptionRepository
	globals *repository.GlobalConfigRepository
	stopper BotStopper
	log     *logrus.Logger

	menu domain.TokenMenu
}

func NewService(creds *repository.CredentialsRepository, tokens *repository.TokenConsumptionRepository, globals *repository.GlobalConfigRepository, stopper BotStopper, log *logrus.Logger) *Service {
	return &Service{creds: creds, tokens: tokens, globals: globals, stopper: stopper, log: log}
}

// LoadMenu caches the token pricing table; called at startup and
// whenever an admin updates pricing.
func (s *Service) LoadMenu(ctx context.Context) error {
	menu, err := s.globals.LoadTokenMenu(ctx)
	if err != nil {
		return err
	}
	if menu != nil {
		s.menu = *menu
	}
	return nil
}

// Callback builds an llmprovider.UsageCallback bound to one (owner,
// bot, feature) triple — every LLM invocation in the platform routes
// through one of these, so cost tracking never depends on the caller
// remembering to record anything.
func (s *Service) Callback(userID, botID, featureName string) llmprovider.UsageCallback {
	return func(ctx context.Context, tier domain.LLMTier, usage llmprovider.Usage) {
		s.record(ctx, userID, botID, featureName, tier, usage)
	}
}

func (s *Service) record(ctx context.Context, userID, botID, featureName string, tier domain.LLMTier, usage llmprovider.Usage) {
	if !usage.Extracted {
		s.log.WithFields(logrus.Fields{"user_id": userID, "bot_id": botID, "feature": featureName}).
			Warn("llmtoken: could not extract token usage from provider response, recording nothing")
		return
	}

	event := domain.TokenEvent{
		Timestamp:         time.Now().UTC(),
		UserID:            userID,
		BotID:             botID,
		FeatureName:       featureName,
		InputTokens:       usage.InputTokens,
		CachedInputTokens: usage.CachedInputTokens,
		OutputTokens:      usage.OutputTokens,
		ConfigTier:        tier,
	}
	if err := s.tokens.Record(ctx, event); err != nil {
		s.log.WithError(err).Error("llmtoken: failed to record token event")
	}

	cost := ComputeCost(RateForTier(s.menu, tier), usage)
	if err := s.EnforceQuota(ctx, userID, cost); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("llmtoken: quota enforcement failed")
	}
}

// EnforceQuota performs the atomic two-step charge:
//  1. $inc dollars_used by cost.
//  2. re-read; if still enabled and dollars_used >= dollars_per_period,
//     $set enabled=false and stop every bot the owner owns.
func (s *Service) EnforceQuota(ctx context.Context, userID string, cost float64) error {
	if err := s.creds.IncrementUsage(ctx, userID, cost); err != nil {
		return err
	}

	cred, err := s.creds.GetByUserID(ctx, userID)
	if err != nil || cred == nil {
		return err
	}

	if !cred.LLMQuota.Enabled || cred.LLMQuota.DollarsUsed < cred.LLMQuota.DollarsPerPeriod {
		return nil
	}

	if err := s.creds.DisableQuota(ctx, userID); err != nil {
		return err
	}
	if s.stopper != nil {
		return s.stopper.StopAllForOwner(ctx, userID)
	}
	return nil
}

// ResetDueQuotas is the daily sweep body: any
// owner whose last_reset+reset_days has elapsed has dollars_used zeroed,
// last_reset bumped to now, and enabled flipped back on. Restarting
// their bots is the caller's job (lifecycle.Service.AutostartOwner),
// which links each bot whose `activated` flag is set; persisted WhatsApp
// credentials live in the external bridge and are not checked.
func (s *Service) ResetDueQuotas(ctx context.Context) ([]string, error) {
	now := time.Now().UTC()
	candidates, err := s.creds.ListDueForReset(ctx)
	if err != nil {
		return nil, err
	}

	var reset []string
	for _, cred := range candidates {
		deadline := cred.LLMQuota.LastReset.AddDate(0, 0, cred.LLMQuota.ResetDays)
		if cred.LLMQuota.ResetDays <= 0 || now.Before(deadline) {
			continue
		}
		if err := s.creds.ResetQuota(ctx, cred.UserID, now); err != nil {
			s.log.WithError(err).WithField("user_id", cred.UserID).Error("llmtoken: quota reset failed")
			continue
		}
		reset = append(reset, cred.UserID)
	}
	return reset, nil
}

// RunResetSweep runs ResetDueQuotas once a day until ctx is cancelled,
// calling onReset for each owner whose quota was just reset so the
// caller can run the bot-autostart gating.
func (s *Service) RunResetSweep(ctx context.Context, onReset func(userID string)) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reset, err := s.ResetDueQuotas(ctx)
			if err != nil {
				s.log.WithError(err).Error("llmtoken: reset sweep failed")
				continue
			}
			for _, userID := range reset {
				if onReset != nil {
					onReset(userID)
				}
			}
		}
	}
}
