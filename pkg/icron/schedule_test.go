package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo(t *testing.T) {
	t.Parallel()

	ref := time.Date(2024, 5, 1, 10, 7, 30, 0, time.UTC)

	tests := []struct {
		expr     string
		next     time.Time
		interval time.Duration
	}{
		{expr: "CRON_TZ=UTC */15 * * * *", next: time.Date(2024, 5, 1, 10, 15, 0, 0, time.UTC), interval: 15 * time.Minute},
		{expr: "CRON_TZ=UTC @hourly", next: time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC), interval: time.Hour},
		{expr: "CRON_TZ=UTC 0 3 * * *", next: time.Date(2024, 5, 2, 3, 0, 0, 0, time.UTC), interval: 24 * time.Hour},
		{expr: "@every 10m", next: ref.Add(10 * time.Minute), interval: 10 * time.Minute},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()
			info, err := GetTriggerInfo(tt.expr, ref)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, info.Expression)
			assert.True(t, tt.next.Equal(info.Next), "next = %s", info.Next)
			assert.Equal(t, tt.interval, info.Interval)
			assert.Equal(t, tt.next.Sub(ref), info.TimeUntilNext)
		})
	}
}

func TestGetTriggerInfo_Invalid(t *testing.T) {
	t.Parallel()

	_, err := GetTriggerInfo("every tuesday", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}
