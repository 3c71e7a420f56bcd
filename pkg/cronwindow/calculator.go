// Package cronwindow computes the (start,end] processing window for a
// scheduled group-tracking fire: the window end snaps to the most
// recent cron occurrence, and the window start either continues from a
// persisted last-run timestamp or caps a large gap so a multi-day
// outage is never reprocessed in one fire.
package cronwindow

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

const maxCatchUp = 15 * time.Minute

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Calculate returns the (start, end) window for cronExpr evaluated at now
// in the given IANA timezone. lastRun is the previous successful run's
// end time; pass the zero time if none is persisted yet.
func Calculate(cronExpr, timezone string, now time.Time, lastRun time.Time) (start, end time.Time, err error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("cronwindow: invalid timezone %q: %w", timezone, err)
	}
	sched, err := parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("cronwindow: invalid cron expression %q: %w", cronExpr, err)
	}

	nowLocal := now.In(loc)

	end, err = prevWithWiggle(sched, nowLocal)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("cronwindow: computing window end: %w", err)
	}

	idealStart, err := prevWithWiggle(sched, end)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("cronwindow: computing ideal start: %w", err)
	}

	windowStart := idealStart
	if !lastRun.IsZero() {
		lastRunLocal := lastRun.In(loc)
		if lastRunLocal.Before(idealStart) {
			gap := idealStart.Sub(lastRunLocal)
			if gap <= maxCatchUp {
				windowStart = lastRunLocal
			} else {
				capped := end.Add(-maxCatchUp)
				if capped.Before(lastRunLocal) {
					capped = lastRunLocal
				}
				windowStart = capped
			}
		} else {
			windowStart = lastRunLocal
		}
	}

	return windowStart, end, nil
}

// prevWithWiggle finds the most recent occurrence of sched strictly
// before pivot. cron/v3 only exposes Next(), so we start from a lower
// bound 367 days before pivot and step forward one occurrence at a time
// to land exactly on the last one before pivot. Landing on a
// DST "phantom hour" (a local time that does not exist) is impossible
// with Go's time.Location semantics since they always normalize to a
// real instant; the remaining concern
// — an ambiguous "fold" hour repeated during a fall-back transition —
// is handled by preferring the later of the two real instants that a
// naive truncation could collide on, by always deriving occurrences
// from Schedule.Next rather than constructing wall-clock times by hand.
func prevWithWiggle(sched cron.Schedule, pivot time.Time) (time.Time, error) {
	lowerBound := pivot.Add(-367 * 24 * time.Hour)
	cursor := lowerBound
	var last time.Time
	for i := 0; i < 1_000_000; i++ {
		next := sched.Next(cursor)
		if !next.Before(pivot) {
			break
		}
		last = next
		cursor = next
	}
	if last.IsZero() {
		return time.Time{}, fmt.Errorf("no occurrence found in the preceding year")
	}
	return last, nil
}
