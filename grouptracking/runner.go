package grouptracking

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/pkg/cronwindow"
	"github.com/AzielCF/chatbot-platform/repository"
)

const fetchHistoryLimit = 500

// HistoryFetcher is the connection check the runner needs; satisfied by
// *bridge.Client. The history fetch itself is injected separately as a
// HistoryFetchFunc.
type HistoryFetcher interface {
	IsConnected() bool
}

// HistoricMessage mirrors bridge.HistoricMessage structurally so this
// package doesn't need to import bridge just for the type.
type HistoricMessage struct {
	ProviderMessageID string
	Sender            domain.Sender
	Content           string
	OriginatingTimeMs int64
	Source            domain.MessageSource
}

// HistoryFetchFunc performs the actual bridge call; injected so tests
// can fake the bridge without a live WebSocket.
type HistoryFetchFunc func(ctx context.Context, groupID string, limit int) ([]HistoricMessage, error)

// DeliveryEnqueuer hands a finished job to the delivery queue;
// satisfied by *deliveryqueue.Manager.
type DeliveryEnqueuer interface {
	Enqueue(ctx context.Context, job domain.DeliveryJob) error
}

// Runner executes one scheduled fire of the tracking pipeline for a
// single (bot, group).
type Runner struct {
	repo      *repository.GroupTrackingRepository
	extractor *Extractor
	enqueuer  DeliveryEnqueuer
	log       *logrus.Entry
}

func NewRunner(repo *repository.GroupTrackingRepository, extractor *Extractor, enqueuer DeliveryEnqueuer, log *logrus.Logger) *Runner {
	var entry *logrus.Entry
	if log != nil {
		entry = log.WithField("component", "grouptracking_runner")
	}
	return &Runner{repo: repo, extractor: extractor, enqueuer: enqueuer, log: entry}
}

// FireParams bundles everything one scheduled fire needs that isn't
// already owned by the Runner.
type FireParams struct {
	BotID        string
	OwnerUserID  string
	ProviderName string
	GroupID      string
	DisplayName  string
	CronSchedule string
	Timezone     string
	Language     string
	IsActive     bool
	Provider     HistoryFetcher
	FetchHistory HistoryFetchFunc
}

// Jitter sleeps 0-60s to desynchronize co-scheduled jobs, returning
// early if ctx is cancelled first.
func Jitter(ctx context.Context) {
	d := time.Duration(rand.Int63n(int64(60 * time.Second)))
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Run executes one scheduled fire: gate on liveness, fetch, window,
// dedup, persist, extract, enqueue.
func (r *Runner) Run(ctx context.Context, p FireParams) error {
	if !p.IsActive || p.Provider == nil || !p.Provider.IsConnected() {
		return nil
	}

	raw, err := p.FetchHistory(ctx, p.GroupID, fetchHistoryLimit)
	if err != nil || raw == nil {
		if r.log != nil {
			r.log.WithError(err).WithField("bot_id", p.BotID).WithField("group_id", p.GroupID).
				Warn("grouptracking: history fetch failed, leaving state untouched for retry")
		}
		return nil
	}

	lastRunMs, _, err := r.repo.GetLastRun(ctx, p.BotID, p.GroupID)
	if err != nil {
		return err
	}
	var lastRun time.Time
	if lastRunMs > 0 {
		lastRun = time.UnixMilli(lastRunMs)
	}

	start, end, err := cronwindow.Calculate(p.CronSchedule, p.Timezone, time.Now(), lastRun)
	if err != nil {
		return err
	}

	dedup, err := r.repo.RecentMessageIDs(ctx, p.BotID, p.GroupID)
	if err != nil {
		return err
	}

	filtered := filterWindow(raw, start, end, dedup)
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].OriginatingTimeMs < filtered[j].OriginatingTimeMs })

	messages := toDomainMessages(filtered, p.GroupID, p.DisplayName)

	alts := map[string]struct{}{}
	if err := r.repo.SaveTrackingResult(ctx, p.BotID, p.GroupID, p.DisplayName, p.CronSchedule, messages, start.UnixMilli(), end.UnixMilli(), alts); err != nil {
		return err
	}

	if len(messages) == 0 {
		return nil
	}

	items, err := r.extractor.Extract(ctx, messages, p.Timezone, p.Language, p.DisplayName)
	if err != nil {
		if r.log != nil {
			r.log.WithError(err).WithField("bot_id", p.BotID).WithField("group_id", p.GroupID).
				Warn("grouptracking: extraction failed")
		}
		return nil
	}

	for _, item := range items {
		job := domain.DeliveryJob{
			MessageID:   uuid.NewString(),
			Destination: domain.MessageDestination{UserID: p.OwnerUserID, ProviderName: p.ProviderName},
			CreatedAt:   time.Now().UTC(),
			MessageType: domain.MessageTypeICSActionableItem,
			Content:     item,
		}
		if err := r.enqueuer.Enqueue(ctx, job); err != nil && r.log != nil {
			r.log.WithError(err).Warn("grouptracking: failed to enqueue delivery job")
		}
	}
	return nil
}

// filterWindow keeps messages with start < originating <= end and not
// already present in the dedup set.
func filterWindow(raw []HistoricMessage, start, end time.Time, dedup map[string]struct{}) []HistoricMessage {
	startMs, endMs := start.UnixMilli(), end.UnixMilli()
	out := make([]HistoricMessage, 0, len(raw))
	for _, m := range raw {
		if m.OriginatingTimeMs <= startMs || m.OriginatingTimeMs > endMs {
			continue
		}
		if m.ProviderMessageID != "" {
			if _, dup := dedup[m.ProviderMessageID]; dup {
				continue
			}
		}
		out = append(out, m)
	}
	return out
}

func toDomainMessages(raw []HistoricMessage, groupID, groupDisplayName string) []domain.Message {
	out := make([]domain.Message, 0, len(raw))
	for i, m := range raw {
		out = append(out, domain.Message{
			ID:                int64(i),
			Content:           m.Content,
			Sender:            m.Sender,
			Source:            m.Source,
			AcceptedTimeMs:    m.OriginatingTimeMs,
			OriginatingTimeMs: m.OriginatingTimeMs,
			Group:             &domain.Group{Identifier: groupID, DisplayName: groupDisplayName},
			ProviderMessageID: m.ProviderMessageID,
		})
	}
	return out
}
