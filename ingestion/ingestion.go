// Package ingestion implements the Ingestion Service: a
// per-bot background task that asynchronously drains every
// correspondent queue into the durable archive collection.
package ingestion

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/pkg/queue"
)

const idleWait = 1 * time.Second

// Archiver persists one drained message; satisfied by
// *repository.QueueArchiveRepository.
type Archiver interface {
	Archive(ctx context.Context, botID, providerName, correspondentID string, msg domain.Message) error
}

// Service is the drain loop, registered as a session.Service.
type Service struct {
	botID        string
	providerName string
	queues       *queue.Manager
	archiver     Archiver
	log          *logrus.Entry

	stopCh chan struct{}
	doneCh chan struct{}
}

func New(botID, providerName string, queues *queue.Manager, archiver Archiver, log *logrus.Logger) *Service {
	var entry *logrus.Entry
	if log != nil {
		entry = log.WithField("bot_id", botID).WithField("service", "ingestion")
	}
	return &Service{botID: botID, providerName: providerName, queues: queues, archiver: archiver, log: entry}
}

// Start runs the drain loop in the background until Stop is called.
func (s *Service) Start(ctx context.Context) error {
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.run(ctx)
	return nil
}

// Stop signals the loop and waits for its pending drain to finish —
// an in-flight archive write runs to completion before the loop exits.
func (s *Service) Stop(ctx context.Context) error {
	if s.stopCh != nil {
		close(s.stopCh)
	}
	if s.doneCh != nil {
		<-s.doneCh
	}
	return nil
}

func (s *Service) run(ctx context.Context) {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			s.drainOnce(ctx)
			return
		default:
		}

		drained := s.drainOnce(ctx)
		if drained == 0 {
			select {
			case <-s.stopCh:
				s.drainOnce(ctx)
				return
			case <-time.After(idleWait):
			case <-ctx.Done():
				return
			}
		}
	}
}

// drainOnce pops every message off every live queue once and archives
// it, returning the count drained.
func (s *Service) drainOnce(ctx context.Context) int {
	drained := 0
	for correspondentID, q := range s.queues.Queues() {
		for {
			msg, ok := q.PopMessage()
			if !ok {
				break
			}
			if err := s.archiver.Archive(ctx, s.botID, s.providerName, correspondentID, msg); err != nil && s.log != nil {
				s.log.WithError(err).Warn("ingestion: archive write failed")
			}
			drained++
		}
	}
	return drained
}
