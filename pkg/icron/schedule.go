package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// TriggerInfo describes the upcoming firings of a schedule relative to a
// reference time.
type TriggerInfo struct {
	Expression string
	Next       time.Time
	// Interval is the gap between the next firing and the one after it.
	Interval time.Duration

	TimeUntilNext time.Duration
}

// GetTriggerInfo parses a standard five-field expression or a descriptor such
// as "@every 10m" or "@hourly".
func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	next := schedule.Next(refTime)
	if next.IsZero() {
		return nil, fmt.Errorf("cron expression %q never fires", cronExpr)
	}

	return &TriggerInfo{
		Expression:    cronExpr,
		Next:          next,
		Interval:      schedule.Next(next).Sub(next),
		TimeUntilNext: next.Sub(refTime),
	}, nil
}
