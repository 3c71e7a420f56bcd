package deliveryqueue

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/repository"
)

const (
	minSleep        = 1 * time.Second
	maxSleep        = 12 * time.Second
	maxSendAttempts = 3
	errorBackoff    = 5 * time.Second
)

// SessionLookup resolves the live session for a job's destination;
// returns ok=false if no session is currently running for that
// (user_id, provider_name) pair.
type SessionLookup func(userID, providerName string) (Session, bool)

// Manager is the single-task random-sample consumer loop.
type Manager struct {
	repo     *repository.DeliveryQueueRepository
	registry Registry
	lookup   SessionLookup
	log      *logrus.Entry

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewManager(repo *repository.DeliveryQueueRepository, registry Registry, lookup SessionLookup, log *logrus.Logger) *Manager {
	var entry *logrus.Entry
	if log != nil {
		entry = log.WithField("component", "deliveryqueue_manager")
	}
	return &Manager{repo: repo, registry: registry, lookup: lookup, log: entry}
}

func (m *Manager) Start(ctx context.Context) error {
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.run(ctx)
	return nil
}

func (m *Manager) Stop(ctx context.Context) error {
	if m.stopCh != nil {
		close(m.stopCh)
	}
	if m.doneCh != nil {
		<-m.doneCh
	}
	return nil
}

// Enqueue appends a new outbound job to the active collection; the
// entry point used by grouptracking.Runner and feature handlers.
func (m *Manager) Enqueue(ctx context.Context, job domain.DeliveryJob) error {
	return m.repo.AddItem(ctx, job)
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.doneCh)
	for {
		sleep := minSleep + time.Duration(rand.Int63n(int64(maxSleep-minSleep)))
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}

		if err := m.tick(ctx); err != nil {
			if m.log != nil {
				m.log.WithError(err).Error("deliveryqueue: consumer tick failed")
			}
			select {
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			case <-time.After(errorBackoff):
			}
		}
	}
}

// tick runs one consumer cycle: sample, cap-check, connection-gate,
// increment, process, delete-or-leave. Errors within the
// cycle body are logged and swallowed so the loop never dies; only an
// error returned from tick itself triggers the 5s catastrophic backoff.
func (m *Manager) tick(ctx context.Context) error {
	job, err := m.repo.SampleActive(ctx)
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}

	if job.SendAttempts >= maxSendAttempts {
		if err := m.repo.MoveToFailed(ctx, *job); err != nil && m.log != nil {
			m.log.WithError(err).WithField("message_id", job.MessageID).Warn("deliveryqueue: failed to dead-letter job")
		}
		return nil
	}

	session, ok := m.lookup(job.Destination.UserID, job.Destination.ProviderName)
	if !ok || !session.IsConnected() {
		return nil
	}

	updated, err := m.repo.IncrementAttemptsAndFetch(ctx, job.MessageID)
	if err != nil {
		if m.log != nil {
			m.log.WithError(err).WithField("message_id", job.MessageID).Warn("deliveryqueue: failed to increment attempts")
		}
		return nil
	}
	if updated == nil {
		return nil
	}

	processor, ok := m.registry[updated.MessageType]
	if !ok {
		if m.log != nil {
			m.log.WithField("message_type", updated.MessageType).Warn("deliveryqueue: no processor registered for message type")
		}
		return nil
	}

	if err := processor.Process(ctx, *updated, session); err != nil {
		if m.log != nil {
			m.log.WithError(err).WithField("message_id", updated.MessageID).Warn("deliveryqueue: delivery attempt failed")
		}
		return nil
	}

	if err := m.repo.DeleteFromActive(ctx, updated.MessageID); err != nil && m.log != nil {
		m.log.WithError(err).WithField("message_id", updated.MessageID).Warn("deliveryqueue: failed to delete delivered job")
	}
	return nil
}

// OnConnect moves a bot owner's holding items to active.
func (m *Manager) OnConnect(ctx context.Context, ownerUserID string) error {
	return m.repo.MoveUserToActive(ctx, ownerUserID)
}

// OnDisconnect moves a bot owner's active items to holding.
func (m *Manager) OnDisconnect(ctx context.Context, ownerUserID string) error {
	return m.repo.MoveUserToHolding(ctx, ownerUserID)
}

// MoveAllToHolding is the startup sweep: every active item parks in
// holding until its bot reconnects.
func (m *Manager) MoveAllToHolding(ctx context.Context) error {
	return m.repo.MoveAllToHolding(ctx)
}
