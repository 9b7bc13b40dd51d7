package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts standard five-field expressions, an optional leading
// seconds field, and descriptors such as @hourly.
var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour |
	cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type TriggerInfo struct {
	Next       time.Time
	Last       time.Time
	Expression string

	TimeSinceLast time.Duration
	TimeUntilNext time.Duration
}

// GetTriggerInfo reports the previous and next firing around refTime. Last
// is zero when the schedule did not fire within the past year.
func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	nextTime := schedule.Next(refTime)

	var prevTime time.Time
	for i := 1; i <= 366*24; i++ {
		windowStart := refTime.Add(-time.Duration(i) * time.Hour)
		candidate := schedule.Next(windowStart)
		if candidate.After(refTime) {
			continue
		}
		// Walk forward to the last firing that is not after refTime.
		for {
			following := schedule.Next(candidate)
			if following.After(refTime) {
				break
			}
			candidate = following
		}
		prevTime = candidate
		break
	}

	info := &TriggerInfo{
		Expression: cronExpr,
		Next:       nextTime,
		Last:       prevTime,
	}

	if !prevTime.IsZero() {
		info.TimeSinceLast = refTime.Sub(prevTime)
	}

	info.TimeUntilNext = nextTime.Sub(refTime)

	return info, nil
}
