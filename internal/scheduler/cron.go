package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// IntervalFromCron derives the firing interval of a standard 5-field cron
// expression, evaluated at whole-minute granularity. The interval is the gap
// between two consecutive activations; expressions with irregular gaps (e.g.
// "0 9,17 * * *") use the first gap after the next whole minute.
func IntervalFromCron(expr string) (time.Duration, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return 0, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	base := time.Now().Truncate(time.Minute)
	first := schedule.Next(base)
	second := schedule.Next(first)

	interval := second.Sub(first).Truncate(time.Minute)
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval, nil
}
