// Package queue implements the bounded per-correspondent message queue
// and its manager: truncate first, then evict in order age -> total
// characters -> message count, logging every eviction and firing
// registered callbacks asynchronously.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AzielCF/chatbot-platform/domain"
)

// Callback receives every message accepted onto a queue, after eviction
// has run. It is invoked asynchronously and its errors are logged, never
// propagated.
type Callback func(botID, correspondentID string, msg domain.Message)

// ArchiveMaxID looks up the highest persisted message id for a
// correspondent so a freshly spawned queue can seed its counter past it.
type ArchiveMaxID func(ctx context.Context, botID, correspondentID string) (int64, error)

// Config bounds one queue; see domain.QueueConfig.
type Config = domain.QueueConfig

// Queue is a single correspondent's bounded FIFO.
type Queue struct {
	mu              sync.Mutex
	botID           string
	correspondentID string
	cfg             Config
	messages        []domain.Message
	totalChars      int
	nextID          int64
	log             *logrus.Entry
}

func newQueue(botID, correspondentID string, cfg Config, seedID int64, log *logrus.Entry) *Queue {
	return &Queue{
		botID:           botID,
		correspondentID: correspondentID,
		cfg:             cfg,
		nextID:          seedID,
		log:             log,
	}
}

// AddMessage truncates content, enforces limits in order age -> characters
// -> count, then appends the message and returns it.
func (q *Queue) AddMessage(content string, sender domain.Sender, source domain.MessageSource, originatingTimeMs int64, group *domain.Group) domain.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cfg.MaxCharactersSingleMessage > 0 && len(content) > q.cfg.MaxCharactersSingleMessage {
		content = content[:q.cfg.MaxCharactersSingleMessage]
	}

	now := time.Now()
	q.enforceLimits(len(content), now)

	msg := domain.Message{
		ID:                q.nextID,
		Content:           content,
		Sender:            sender,
		Source:            source,
		AcceptedTimeMs:    now.UnixMilli(),
		OriginatingTimeMs: originatingTimeMs,
		Group:             group,
	}
	q.nextID++
	q.messages = append(q.messages, msg)
	q.totalChars += len(content)

	return msg
}

// enforceLimits evicts from the front in order: age, then total
// characters (projected with the incoming message), then message count.
func (q *Queue) enforceLimits(newMessageChars int, now time.Time) {
	maxAge := time.Duration(q.cfg.MaxDays) * 24 * time.Hour

	for len(q.messages) > 0 && q.cfg.MaxDays > 0 {
		oldest := q.messages[0]
		age := now.Sub(time.UnixMilli(oldest.AcceptedTimeMs))
		if age <= maxAge {
			break
		}
		q.evictFront("age")
	}

	for len(q.messages) > 0 && q.cfg.MaxCharacters > 0 && q.totalChars+newMessageChars > q.cfg.MaxCharacters {
		q.evictFront("total_characters")
	}

	for len(q.messages) > 0 && q.cfg.MaxMessages > 0 && len(q.messages)+1 > q.cfg.MaxMessages {
		q.evictFront("message_count")
	}
}

func (q *Queue) evictFront(reason string) {
	evicted := q.messages[0]
	q.messages = q.messages[1:]
	q.totalChars -= len(evicted.Content)
	if q.log != nil {
		q.log.WithFields(logrus.Fields{
			"bot_id":           q.botID,
			"correspondent_id": q.correspondentID,
			"evicted_id":       evicted.ID,
			"reason":           reason,
		}).Info("queue: evicted message")
	}
}

// PopMessage removes and returns the oldest message for drainers.
func (q *Queue) PopMessage() (domain.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.messages) == 0 {
		return domain.Message{}, false
	}
	msg := q.messages[0]
	q.messages = q.messages[1:]
	q.totalChars -= len(msg.Content)
	return msg, true
}

// Messages returns a snapshot copy of the queue's current contents in
// FIFO order, for read-only consumers like autoreply's history
// retrieval that must not drain the queue (only the ingestion
// drainer calls PopMessage).
func (q *Queue) Messages() []domain.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.Message, len(q.messages))
	copy(out, q.messages)
	return out
}

// Len reports the current message count (test/inspection helper).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// TotalCharacters reports the current running character total.
func (q *Queue) TotalCharacters() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.totalChars
}

// dispatchBuffer bounds the per-queue callback channel; a full buffer
// applies backpressure to the producer rather than dropping or
// reordering messages.
const dispatchBuffer = 128

// Manager owns every correspondent queue for one bot and fans out
// accepted messages to registered callbacks. Dispatch is serialized per
// queue: a single worker per correspondent drains a channel, so
// enqueue order equals dispatch order for that correspondent.
type Manager struct {
	mu         sync.Mutex
	botID      string
	cfg        Config
	queues     map[string]*Queue
	dispatch   map[string]chan domain.Message
	callbacks  []Callback
	archiveMax ArchiveMaxID
	log        *logrus.Logger

	closeMu sync.RWMutex
	closed  bool
}

func NewManager(botID string, cfg Config, archiveMax ArchiveMaxID, log *logrus.Logger) *Manager {
	return &Manager{
		botID:      botID,
		cfg:        cfg,
		queues:     make(map[string]*Queue),
		dispatch:   make(map[string]chan domain.Message),
		archiveMax: archiveMax,
		log:        log,
	}
}

// RegisterCallback applies to all existing and future queues.
func (m *Manager) RegisterCallback(cb Callback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// GetOrCreateQueue spawns a queue on first use, seeding its id counter
// from the archive's max persisted id for this correspondent.
func (m *Manager) GetOrCreateQueue(ctx context.Context, correspondentID string) *Queue {
	m.mu.Lock()
	defer m.mu.Unlock()

	if q, ok := m.queues[correspondentID]; ok {
		return q
	}

	var seed int64
	if m.archiveMax != nil {
		if maxID, err := m.archiveMax(ctx, m.botID, correspondentID); err == nil {
			seed = maxID + 1
		} else if m.log != nil {
			m.log.WithError(err).WithField("correspondent_id", correspondentID).
				Warn("queue: failed to seed id counter from archive, starting at 0")
		}
	}

	var entry *logrus.Entry
	if m.log != nil {
		entry = m.log.WithField("bot_id", m.botID)
	}
	q := newQueue(m.botID, correspondentID, m.cfg, seed, entry)
	m.queues[correspondentID] = q

	ch := make(chan domain.Message, dispatchBuffer)
	m.dispatch[correspondentID] = ch
	go m.dispatchLoop(correspondentID, ch)

	return q
}

// AddMessage enqueues onto the correspondent's queue and hands the
// message to that queue's dispatch worker; callback panics/errors never
// reach the caller.
func (m *Manager) AddMessage(ctx context.Context, correspondentID, content string, sender domain.Sender, source domain.MessageSource, originatingTimeMs int64, group *domain.Group) domain.Message {
	q := m.GetOrCreateQueue(ctx, correspondentID)
	msg := q.AddMessage(content, sender, source, originatingTimeMs, group)

	m.closeMu.RLock()
	if !m.closed {
		m.mu.Lock()
		ch := m.dispatch[correspondentID]
		m.mu.Unlock()
		ch <- msg
	}
	m.closeMu.RUnlock()

	return msg
}

// dispatchLoop is one correspondent's dispatch worker: messages are
// handed to every registered callback in arrival order, one at a time.
func (m *Manager) dispatchLoop(correspondentID string, ch <-chan domain.Message) {
	for msg := range ch {
		m.mu.Lock()
		cbs := make([]Callback, len(m.callbacks))
		copy(cbs, m.callbacks)
		m.mu.Unlock()

		for _, cb := range cbs {
			m.invoke(cb, correspondentID, msg)
		}
	}
}

func (m *Manager) invoke(cb Callback, correspondentID string, msg domain.Message) {
	defer func() {
		if r := recover(); r != nil && m.log != nil {
			m.log.WithField("recover", r).Error("queue: callback panicked")
		}
	}()
	cb(m.botID, correspondentID, msg)
}

// Close stops every dispatch worker. Messages already handed to a
// worker still reach callbacks; AddMessage calls after Close enqueue
// without dispatching.
func (m *Manager) Close() {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()
	if m.closed {
		return
	}
	m.closed = true

	m.mu.Lock()
	for _, ch := range m.dispatch {
		close(ch)
	}
	m.mu.Unlock()
}

// Queues returns a snapshot of every live correspondent queue, for the
// ingestion drainer.
func (m *Manager) Queues() map[string]*Queue {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*Queue, len(m.queues))
	for k, v := range m.queues {
		out[k] = v
	}
	return out
}
