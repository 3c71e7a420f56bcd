// Package session implements the Session Manager: the
// composition root for one running bot. It owns the chat provider, the
// correspondent queue manager, every registered feature handler, and
// every associated background service, and fans inbound messages out to
// handlers while keeping `stop()` a strict drain-before-stop barrier.
package session

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/pkg/queue"
)

// MessageHandler receives every inbound user message dispatched through
// a session's fan-out. Handlers never see `bot`/`user_outgoing` sources
// — those are archived but not dispatched.
type MessageHandler interface {
	HandleMessage(ctx context.Context, correspondentID string, msg domain.Message, group *domain.Group)
}

// Provider is the chat-provider surface a session depends on; satisfied
// by *bridge.Client. Narrowed to avoid an import cycle with bridge,
// which never needs to know about sessions.
type Provider interface {
	Listen(ctx context.Context)
	StopListening(ctx context.Context, cleanupSession bool) error
}

// Service is a background task associated with a session (ingestion,
// a feature's own workers) that the session starts and stops alongside
// the provider, in LIFO order on stop.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Session is one bot's running composition root.
type Session struct {
	BotID    string
	Queues   *queue.Manager
	Provider Provider

	mu       sync.Mutex
	handlers []MessageHandler
	services []Service
	log      *logrus.Entry

	runCtx    context.Context
	runCancel context.CancelFunc
}

func New(botID string, queues *queue.Manager, provider Provider, log *logrus.Logger) *Session {
	var entry *logrus.Entry
	if log != nil {
		entry = log.WithField("bot_id", botID)
	}
	return &Session{BotID: botID, Queues: queues, Provider: provider, log: entry}
}

// RegisterMessageHandler is a pre-start registration point.
func (s *Session) RegisterMessageHandler(h MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// RegisterService is a pre-start registration point.
func (s *Session) RegisterService(svc Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = append(s.services, svc)
}

// Start wires the queue manager's fan-out callback, begins listening on
// the provider, and starts every associated service in registration
// order.
func (s *Session) Start(ctx context.Context) error {
	s.runCtx, s.runCancel = context.WithCancel(ctx)

	s.Queues.RegisterCallback(func(botID, correspondentID string, msg domain.Message) {
		s.dispatch(s.runCtx, correspondentID, msg)
	})

	go s.Provider.Listen(s.runCtx)

	s.mu.Lock()
	services := append([]Service(nil), s.services...)
	s.mu.Unlock()

	for _, svc := range services {
		if err := svc.Start(s.runCtx); err != nil {
			return err
		}
	}
	return nil
}

// dispatch fans a queued message out to every registered handler
// concurrently, in enqueue order relative to other messages on this
// queue. A panicking
// handler is logged and swallowed so peers still run.
func (s *Session) dispatch(ctx context.Context, correspondentID string, msg domain.Message) {
	if msg.Source != domain.SourceUser {
		return
	}

	s.mu.Lock()
	handlers := append([]MessageHandler(nil), s.handlers...)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, h := range handlers {
		h := h
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil && s.log != nil {
					s.log.WithField("recover", r).Error("session: message handler panicked")
				}
			}()
			h.HandleMessage(ctx, correspondentID, msg, msg.Group)
		}()
	}
	wg.Wait()
}

// Stop halts every associated service in LIFO order — waiting for any
// dispatch already in flight to finish first, since dispatch holds no
// lock across the handler call and Stop only tears down services after
// this function's own in-flight work completes — then stops the
// provider with the cleanup flag.
func (s *Session) Stop(ctx context.Context, cleanupSession bool) error {
	if s.runCancel != nil {
		s.runCancel()
	}

	s.mu.Lock()
	services := append([]Service(nil), s.services...)
	s.mu.Unlock()

	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Stop(ctx); err != nil && s.log != nil {
			s.log.WithError(err).Warn("session: service stop failed")
		}
	}

	s.Queues.Close()

	return s.Provider.StopListening(ctx, cleanupSession)
}
