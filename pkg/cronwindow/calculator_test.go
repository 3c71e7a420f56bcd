package cronwindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate_NoLastRun_UsesPreviousInterval(t *testing.T) {
	now := time.Date(2026, 7, 29, 15, 0, 30, 0, time.UTC)
	start, end, err := Calculate("0 * * * *", "UTC", now, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 29, 15, 0, 0, 0, time.UTC), end)
	assert.Equal(t, time.Date(2026, 7, 29, 14, 0, 0, 0, time.UTC), start)
}

func TestCalculate_LastRunWithinCatchUp(t *testing.T) {
	now := time.Date(2026, 7, 29, 15, 0, 30, 0, time.UTC)
	lastRun := time.Date(2026, 7, 29, 13, 50, 0, 0, time.UTC)
	start, end, err := Calculate("0 * * * *", "UTC", now, lastRun)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 29, 15, 0, 0, 0, time.UTC), end)
	assert.Equal(t, lastRun, start)
}

func TestCalculate_LastRunGapTooLarge_CapsWindow(t *testing.T) {
	now := time.Date(2026, 7, 29, 15, 0, 30, 0, time.UTC)
	lastRun := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	start, end, err := Calculate("0 * * * *", "UTC", now, lastRun)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 29, 15, 0, 0, 0, time.UTC), end)
	assert.Equal(t, end.Add(-15*time.Minute), start)
}

func TestCalculate_LastRunAtOrAfterIdealStart_UsesLastRun(t *testing.T) {
	now := time.Date(2026, 7, 29, 15, 0, 30, 0, time.UTC)
	lastRun := time.Date(2026, 7, 29, 14, 30, 0, 0, time.UTC)
	start, end, err := Calculate("0 * * * *", "UTC", now, lastRun)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 29, 15, 0, 0, 0, time.UTC), end)
	assert.Equal(t, lastRun, start)
}

func TestCalculate_InvalidCronExpression(t *testing.T) {
	_, _, err := Calculate("not a cron", "UTC", time.Now(), time.Time{})
	assert.Error(t, err)
}

func TestCalculate_InvalidTimezone(t *testing.T) {
	_, _, err := Calculate("0 * * * *", "Nowhere/Imaginary", time.Now(), time.Time{})
	assert.Error(t, err)
}
