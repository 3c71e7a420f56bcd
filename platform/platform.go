// Package platform is the backend process's composition root: it owns
// the Mongo store, every repository, the delivery consumer, the
// group-tracking scheduler, the token/quota service, and the bot
// lifecycle service, and runs the startup and shutdown sequences that
// tie them together.
package platform

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AzielCF/chatbot-platform/appconfig"
	"github.com/AzielCF/chatbot-platform/bridge"
	"github.com/AzielCF/chatbot-platform/deliveryqueue"
	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/grouptracking"
	"github.com/AzielCF/chatbot-platform/lifecycle"
	"github.com/AzielCF/chatbot-platform/llmprovider"
	"github.com/AzielCF/chatbot-platform/llmtoken"
	"github.com/AzielCF/chatbot-platform/mongostore"
	"github.com/AzielCF/chatbot-platform/repository"
)

const autostartDelay = 60 * time.Second

// State wires every backend subsystem together and exposes them to the
// REST layer.
type State struct {
	Cfg *appconfig.Config
	Log *logrus.Logger

	Store *mongostore.Store

	Bots      *repository.BotRepository
	Creds     *repository.CredentialsRepository
	Archive   *repository.QueueArchiveRepository
	GroupRepo *repository.GroupTrackingRepository
	Delivery  *repository.DeliveryQueueRepository
	Tokens    *repository.TokenConsumptionRepository
	Globals   *repository.GlobalConfigRepository
	Audit     *repository.AuditRepository

	DeliveryMgr *deliveryqueue.Manager
	Scheduler   *grouptracking.Scheduler
	History     *grouptracking.HistoryService
	TokenSvc    *llmtoken.Service
	Lifecycle   *lifecycle.Service

	cancel context.CancelFunc
}

// New connects the database, creates indices, and builds the full
// object graph. Nothing is started yet; call Start.
func New(ctx context.Context, cfg *appconfig.Config, log *logrus.Logger) (*State, error) {
	store, err := mongostore.Connect(ctx, cfg.MongoDBURL, cfg.MongoDBDatabase)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureIndices(ctx); err != nil {
		store.Close(ctx)
		return nil, err
	}

	llmprovider.RegisterDefaultProviders()

	st := &State{
		Cfg:   cfg,
		Log:   log,
		Store: store,

		Bots:      repository.NewBotRepository(store),
		Creds:     repository.NewCredentialsRepository(store),
		Archive:   repository.NewQueueArchiveRepository(store),
		GroupRepo: repository.NewGroupTrackingRepository(store),
		Delivery:  repository.NewDeliveryQueueRepository(store),
		Tokens:    repository.NewTokenConsumptionRepository(store),
		Globals:   repository.NewGlobalConfigRepository(store),
		Audit:     repository.NewAuditRepository(store),
	}

	st.History = grouptracking.NewHistoryService(st.GroupRepo)
	st.Scheduler = grouptracking.NewScheduler(st.fireTrackingJob, log)
	st.DeliveryMgr = deliveryqueue.NewManager(st.Delivery, deliveryqueue.DefaultRegistry(),
		func(userID, providerName string) (deliveryqueue.Session, bool) {
			return st.Lifecycle.SessionLookup(userID, providerName)
		}, log)
	st.TokenSvc = llmtoken.NewService(st.Creds, st.Tokens, st.Globals, st, log)
	st.Lifecycle = lifecycle.NewService(st.Bots, st.Creds, st.Archive, st.GroupRepo,
		st.DeliveryMgr, st.Scheduler, st.TokenSvc, log)

	return st, nil
}

// StopAllForOwner implements llmtoken.BotStopper by delegating to the
// lifecycle service; State exists before Lifecycle does during
// construction, so the token service holds State instead.
func (st *State) StopAllForOwner(ctx context.Context, userID string) error {
	return st.Lifecycle.StopAllForOwner(ctx, userID)
}

// Start runs the startup sequence: load pricing, park every in-flight
// delivery item in holding, start the consumer and the scheduler, then
// kick off the delayed autostart sweep and the daily quota-reset sweep.
func (st *State) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	st.cancel = cancel

	if err := st.TokenSvc.LoadMenu(runCtx); err != nil {
		st.Log.WithError(err).Warn("platform: token menu not loaded, cost defaults to zero")
	}

	if err := st.DeliveryMgr.MoveAllToHolding(runCtx); err != nil {
		return err
	}
	if err := st.DeliveryMgr.Start(runCtx); err != nil {
		return err
	}
	st.Scheduler.Start()

	go st.autostartSweep(runCtx)
	go st.TokenSvc.RunResetSweep(runCtx, func(userID string) {
		st.Lifecycle.AutostartOwner(runCtx, userID)
	})

	return nil
}

// autostartSweep waits out the grace period, then links every activated
// bot belonging to a quota-enabled owner.
func (st *State) autostartSweep(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(autostartDelay):
	}

	owners, err := st.Creds.ListQuotaEnabled(ctx)
	if err != nil {
		st.Log.WithError(err).Warn("platform: autostart owner listing failed")
		return
	}
	for _, owner := range owners {
		st.Lifecycle.AutostartOwner(ctx, owner.UserID)
	}
}

// Stop runs the shutdown sequence: every active session stops without
// cleanup so bridge credentials survive the restart, then the scheduler,
// the delivery consumer, and finally the database connection.
func (st *State) Stop(ctx context.Context) {
	if st.cancel != nil {
		st.cancel()
	}

	st.Lifecycle.StopAll(ctx)
	st.Scheduler.Stop()
	if err := st.DeliveryMgr.Stop(ctx); err != nil {
		st.Log.WithError(err).Warn("platform: delivery consumer stop failed")
	}
	if err := st.Store.Close(ctx); err != nil {
		st.Log.WithError(err).Warn("platform: database close failed")
	}
}

// fireTrackingJob is the scheduler's FireFunc: one scheduled fire of the
// tracking pipeline for a single (bot, group). The per-bot LLM clients
// are built fresh each fire so config edits take effect on the next run
// without a reload.
func (st *State) fireTrackingJob(ctx context.Context, botID string, entry domain.PeriodicGroupTrackingEntry) {
	grouptracking.Jitter(ctx)

	bot, err := st.Bots.GetByID(ctx, botID)
	if err != nil || bot == nil {
		st.Log.WithError(err).WithField("bot_id", botID).Warn("platform: tracking fire could not load bot config")
		return
	}

	low, err := llmprovider.NewClient(bot.LLMConfigs.Low, domain.TierLow,
		st.TokenSvc.Callback(bot.OwnerUserID, botID, "periodic_group_tracking"))
	if err != nil {
		st.Log.WithError(err).WithField("bot_id", botID).Warn("platform: tracking fire could not build low-tier client")
		return
	}
	high, err := llmprovider.NewClient(bot.LLMConfigs.High, domain.TierHigh,
		st.TokenSvc.Callback(bot.OwnerUserID, botID, "periodic_group_tracking"))
	if err != nil {
		st.Log.WithError(err).WithField("bot_id", botID).Warn("platform: tracking fire could not build high-tier client")
		return
	}

	runner := grouptracking.NewRunner(st.GroupRepo, grouptracking.NewExtractor(low, high), st.DeliveryMgr, st.Log)

	provider, _ := st.Lifecycle.Provider(botID)
	params := grouptracking.FireParams{
		BotID:        botID,
		OwnerUserID:  bot.OwnerUserID,
		ProviderName: bot.ChatProviderConfig.ProviderName,
		GroupID:      entry.GroupIdentifier,
		DisplayName:  entry.DisplayName,
		CronSchedule: entry.CronTrackingSchedule,
		Timezone:     bot.Profile.Timezone,
		Language:     bot.Profile.LanguageCode,
		IsActive:     st.Lifecycle.IsActive(botID),
		Provider:     providerOrNil(provider),
		FetchHistory: fetchHistoryFunc(provider),
	}

	if err := runner.Run(ctx, params); err != nil {
		st.Log.WithError(err).WithFields(logrus.Fields{"bot_id": botID, "group_id": entry.GroupIdentifier}).
			Warn("platform: tracking fire failed")
	}
}

// providerOrNil keeps a typed-nil *bridge.Client from sneaking into the
// HistoryFetcher interface value.
func providerOrNil(c *bridge.Client) grouptracking.HistoryFetcher {
	if c == nil {
		return nil
	}
	return c
}

func fetchHistoryFunc(c *bridge.Client) grouptracking.HistoryFetchFunc {
	return func(ctx context.Context, groupID string, limit int) ([]grouptracking.HistoricMessage, error) {
		if c == nil {
			return nil, nil
		}
		raw, err := c.FetchHistory(ctx, groupID, limit)
		if err != nil || raw == nil {
			return nil, err
		}
		out := make([]grouptracking.HistoricMessage, 0, len(raw))
		for _, m := range raw {
			out = append(out, grouptracking.HistoricMessage{
				ProviderMessageID: m.ProviderMessageID,
				Sender:            m.Sender,
				Content:           m.Content,
				OriginatingTimeMs: m.OriginatingTimeMs,
				Source:            m.Source,
			})
		}
		return out, nil
	}
}
