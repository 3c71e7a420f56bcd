package grouptracking

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/AzielCF/chatbot-platform/domain"
)

// FireFunc runs one scheduled tracking job; bound to Runner.Run by the
// caller that constructs the Scheduler.
type FireFunc func(ctx context.Context, botID string, entry domain.PeriodicGroupTrackingEntry)

// Scheduler is the cron job registry, indexed by
// job_id = bot_id + ":" + group_id. Per-job timezone rides the
// standard `CRON_TZ=` prefix robfig/cron's parser understands, so each
// (bot, group) can carry the owner's own timezone independent of the
// others.
type Scheduler struct {
	cronRunner *cron.Cron
	fire       FireFunc
	log        *logrus.Entry

	mu   sync.Mutex
	jobs map[string]cron.EntryID
}

func NewScheduler(fire FireFunc, log *logrus.Logger) *Scheduler {
	var entry *logrus.Entry
	if log != nil {
		entry = log.WithField("component", "grouptracking_scheduler")
	}
	return &Scheduler{
		cronRunner: cron.New(),
		fire:       fire,
		log:        entry,
		jobs:       make(map[string]cron.EntryID),
	}
}

func (s *Scheduler) Start() { s.cronRunner.Start() }

func (s *Scheduler) Stop() { s.cronRunner.Stop() }

func jobID(botID, groupID string) string { return botID + ":" + groupID }

// UpdateJobs removes every existing job for botID and re-adds one per
// entry in configs. Called on bot connect and whenever the
// owner edits the tracked-group list.
func (s *Scheduler) UpdateJobs(botID string, configs []domain.PeriodicGroupTrackingEntry, timezone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeByPrefixLocked(botID + ":")

	for _, cfg := range configs {
		spec := fmt.Sprintf("CRON_TZ=%s %s", timezone, cfg.CronTrackingSchedule)
		cfg := cfg
		id, err := s.cronRunner.AddFunc(spec, func() {
			s.fire(context.Background(), botID, cfg)
		})
		if err != nil {
			return fmt.Errorf("grouptracking: scheduling job %s: %w", jobID(botID, cfg.GroupIdentifier), err)
		}
		s.jobs[jobID(botID, cfg.GroupIdentifier)] = id
	}
	return nil
}

// StopTrackingJobs removes every job for botID without re-adding any,
// so persisted tracking data is retained but no further fires occur
// until the next connect.
func (s *Scheduler) StopTrackingJobs(botID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeByPrefixLocked(botID + ":")
}

// HasJobsFor reports whether botID currently has any scheduled job —
// the duplicate-setup guard used by the lifecycle service's connected
// handler uses to guard against double-scheduling.
func (s *Scheduler) HasJobsFor(botID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := botID + ":"
	for id := range s.jobs {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

// removeByPrefixLocked drops every registry entry (and its underlying
// cron.Entry) whose job_id starts with prefix. Jobs lost to a prior
// process restart never made it into this registry, so a from-scratch
// restart's UpdateJobs call rebuilds a clean set instead of relying on
// the stale in-memory map; the registry itself stays authoritative for
// the lifetime of one process.
func (s *Scheduler) removeByPrefixLocked(prefix string) {
	for id, entryID := range s.jobs {
		if strings.HasPrefix(id, prefix) {
			s.cronRunner.Remove(entryID)
			delete(s.jobs, id)
		}
	}
}
