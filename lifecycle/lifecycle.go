// Package lifecycle implements the Bot Lifecycle Service:
// link/unlink/reload/delete flows plus the on-status-change callback
// that wires a bot's connection state into the delivery queue and the
// group-tracking scheduler.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/AzielCF/chatbot-platform/bridge"
	"github.com/AzielCF/chatbot-platform/deliveryqueue"
	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/grouptracking"
	"github.com/AzielCF/chatbot-platform/llmtoken"
	"github.com/AzielCF/chatbot-platform/pkg/apperror"
	"github.com/AzielCF/chatbot-platform/repository"
)

// Service owns every running bot instance and the transitions
// between its lifecycle states.
type Service struct {
	bots      *repository.BotRepository
	creds     *repository.CredentialsRepository
	archive   *repository.QueueArchiveRepository
	groupRepo *repository.GroupTrackingRepository
	delivery  *deliveryqueue.Manager
	scheduler *grouptracking.Scheduler
	tokens    *llmtoken.Service
	log       *logrus.Logger

	mu      sync.Mutex
	running map[string]*instance
}

func NewService(
	bots *repository.BotRepository,
	creds *repository.CredentialsRepository,
	archive *repository.QueueArchiveRepository,
	groupRepo *repository.GroupTrackingRepository,
	delivery *deliveryqueue.Manager,
	scheduler *grouptracking.Scheduler,
	tokens *llmtoken.Service,
	log *logrus.Logger,
) *Service {
	return &Service{
		bots:      bots,
		creds:     creds,
		archive:   archive,
		groupRepo: groupRepo,
		delivery:  delivery,
		scheduler: scheduler,
		tokens:    tokens,
		log:       log,
		running:   make(map[string]*instance),
	}
}

// Link starts a bot. Idempotent-but-exclusive: a dead prior
// instance (disconnected/terminated) is cleaned up and replaced; a
// healthy one rejects with conflict.
func (s *Service) Link(ctx context.Context, botID string) error {
	bot, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		return err
	}
	if bot == nil {
		return apperror.NotFound(fmt.Sprintf("bot %s not found", botID))
	}

	var dead *instance
	s.mu.Lock()
	if prior, ok := s.running[botID]; ok {
		status := prior.bridgeClient.GetStatus()
		if status == domain.StatusDisconnected || status == domain.StatusTerminated {
			delete(s.running, botID)
			dead = prior
		} else {
			s.mu.Unlock()
			return apperror.Conflict(fmt.Sprintf("bot %s already linked", botID))
		}
	}
	s.mu.Unlock()

	if dead != nil {
		if err := dead.stop(ctx, false); err != nil && s.log != nil {
			s.log.WithError(err).WithField("bot_id", botID).Warn("lifecycle: failed to stop dead prior instance")
		}
	}

	inst, err := s.newInstance(*bot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.running[botID] = inst
	s.mu.Unlock()

	return inst.start(ctx)
}

// Unlink stops a bot with cleanup (bridge session torn down).
func (s *Service) Unlink(ctx context.Context, botID string) error {
	return s.stop(ctx, botID, true)
}

// Reload stops a bot without cleanup, then starts it again — used when
// an owner edits config without wanting to drop the underlying
// provider session.
func (s *Service) Reload(ctx context.Context, botID string) error {
	if err := s.stop(ctx, botID, false); err != nil {
		return err
	}
	return s.Link(ctx, botID)
}

// Delete stops a bot with cleanup, removes its config, and detaches it
// from the owner's ownership list.
func (s *Service) Delete(ctx context.Context, botID string) error {
	bot, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		return err
	}
	if err := s.stop(ctx, botID, true); err != nil {
		return err
	}
	if err := s.bots.Delete(ctx, botID); err != nil {
		return err
	}
	if bot != nil {
		if err := s.creds.RemoveOwnedBot(ctx, bot.OwnerUserID, botID); err != nil {
			return err
		}
	}
	s.scheduler.StopTrackingJobs(botID)
	if s.groupRepo != nil {
		if _, err := s.groupRepo.DeleteAllUserMessages(ctx, botID); err != nil && s.log != nil {
			s.log.WithError(err).WithField("bot_id", botID).Warn("lifecycle: failed to delete group tracking history on bot delete")
		}
	}
	return nil
}

func (s *Service) stop(ctx context.Context, botID string, cleanup bool) error {
	s.mu.Lock()
	inst, ok := s.running[botID]
	if ok {
		delete(s.running, botID)
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return inst.stop(ctx, cleanup)
}

// StopAllForOwner implements llmtoken.BotStopper: stops every running
// bot belonging to userID, without cleanup (quota overrun is not the
// owner disconnecting on purpose).
func (s *Service) StopAllForOwner(ctx context.Context, userID string) error {
	s.mu.Lock()
	var targets []string
	for botID, inst := range s.running {
		if inst.bot.OwnerUserID == userID {
			targets = append(targets, botID)
		}
	}
	s.mu.Unlock()

	for _, botID := range targets {
		if err := s.stop(ctx, botID, false); err != nil && s.log != nil {
			s.log.WithError(err).WithField("bot_id", botID).Warn("lifecycle: failed to stop bot for quota enforcement")
		}
	}
	return nil
}

// AutostartOwner links every activated bot the owner has configured,
// used by the startup sweep and the quota-reset re-enable path. A
// conflict from an already-linked bot is not an error here.
func (s *Service) AutostartOwner(ctx context.Context, userID string) {
	bots, err := s.bots.ListByOwner(ctx, userID)
	if err != nil {
		if s.log != nil {
			s.log.WithError(err).WithField("user_id", userID).Warn("lifecycle: autostart owner lookup failed")
		}
		return
	}
	for _, bot := range bots {
		if !bot.Activated {
			continue
		}
		if err := s.Link(ctx, bot.BotID); err != nil {
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Kind == apperror.KindConflict {
				continue
			}
			if s.log != nil {
				s.log.WithError(err).WithField("bot_id", bot.BotID).Warn("lifecycle: autostart link failed")
			}
		}
	}
}

// StopAll stops every running bot without cleanup, preserving bridge
// credentials so a process restart can relink them.
func (s *Service) StopAll(ctx context.Context) {
	s.mu.Lock()
	var targets []string
	for botID := range s.running {
		targets = append(targets, botID)
	}
	s.mu.Unlock()

	for _, botID := range targets {
		if err := s.stop(ctx, botID, false); err != nil && s.log != nil {
			s.log.WithError(err).WithField("bot_id", botID).Warn("lifecycle: shutdown stop failed")
		}
	}
}

// IsActive reports whether botID currently has a running in-memory
// instance, used by grouptracking.Runner's pre-check.
func (s *Service) IsActive(botID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[botID]
	return ok
}

// Provider returns the live bridge client for botID, if running — used
// by the group-tracking fire and the REST bot status endpoints.
func (s *Service) Provider(botID string) (*bridge.Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.running[botID]
	if !ok {
		return nil, false
	}
	return inst.bridgeClient, true
}

// SessionLookup adapts the running-instance registry to
// deliveryqueue.SessionLookup, resolving by owner + provider name since
// delivery jobs address an owner, not a bot_id directly.
func (s *Service) SessionLookup(userID, providerName string) (deliveryqueue.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inst := range s.running {
		if inst.bot.OwnerUserID == userID && inst.bot.ChatProviderConfig.ProviderName == providerName {
			return inst.bridgeClient, true
		}
	}
	return nil, false
}
