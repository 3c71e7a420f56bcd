package grouptracking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AzielCF/chatbot-platform/domain"
)

func noopFire(ctx context.Context, botID string, entry domain.PeriodicGroupTrackingEntry) {}

func TestScheduler_UpdateJobsRegistersPerGroup(t *testing.T) {
	s := NewScheduler(noopFire, nil)

	err := s.UpdateJobs("bot1", []domain.PeriodicGroupTrackingEntry{
		{GroupIdentifier: "g1", CronTrackingSchedule: "0 9 * * *"},
		{GroupIdentifier: "g2", CronTrackingSchedule: "30 18 * * 5"},
	}, "America/New_York")

	require.NoError(t, err)
	assert.True(t, s.HasJobsFor("bot1"))
	assert.False(t, s.HasJobsFor("bot2"))
}

func TestScheduler_UpdateJobsReplacesExisting(t *testing.T) {
	s := NewScheduler(noopFire, nil)

	require.NoError(t, s.UpdateJobs("bot1", []domain.PeriodicGroupTrackingEntry{
		{GroupIdentifier: "g1", CronTrackingSchedule: "0 9 * * *"},
	}, "UTC"))
	require.NoError(t, s.UpdateJobs("bot1", []domain.PeriodicGroupTrackingEntry{
		{GroupIdentifier: "g2", CronTrackingSchedule: "0 10 * * *"},
	}, "UTC"))

	s.mu.Lock()
	_, hasOld := s.jobs["bot1:g1"]
	_, hasNew := s.jobs["bot1:g2"]
	s.mu.Unlock()

	assert.False(t, hasOld)
	assert.True(t, hasNew)
}

func TestScheduler_StopTrackingJobsRemovesOnlyThatBot(t *testing.T) {
	s := NewScheduler(noopFire, nil)

	require.NoError(t, s.UpdateJobs("bot1", []domain.PeriodicGroupTrackingEntry{
		{GroupIdentifier: "g1", CronTrackingSchedule: "0 9 * * *"},
	}, "UTC"))
	require.NoError(t, s.UpdateJobs("bot2", []domain.PeriodicGroupTrackingEntry{
		{GroupIdentifier: "g1", CronTrackingSchedule: "0 9 * * *"},
	}, "UTC"))

	s.StopTrackingJobs("bot1")

	assert.False(t, s.HasJobsFor("bot1"))
	assert.True(t, s.HasJobsFor("bot2"))
}

func TestScheduler_RejectsInvalidCron(t *testing.T) {
	s := NewScheduler(noopFire, nil)

	err := s.UpdateJobs("bot1", []domain.PeriodicGroupTrackingEntry{
		{GroupIdentifier: "g1", CronTrackingSchedule: "not a cron"},
	}, "UTC")

	assert.Error(t, err)
}
