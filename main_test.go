package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadewadee/marketing-engine/internal/domain"
	"github.com/sadewadee/marketing-engine/runner"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		name      string
		start     string
		end       string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{name: "empty"},
		{
			name:      "single day",
			start:     "2026-03-01",
			end:       "2026-03-01",
			wantStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{name: "start only", start: "2026-03-01", wantErr: true},
		{name: "bad date", start: "2026-03-01", end: "03/02/2026", wantErr: true},
		{name: "reversed", start: "2026-03-05", end: "2026-03-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parseRange(tt.start, tt.end)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestApplyFlagsOnlyOverridesChanged(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("dsn", "", "")
	cmd.Flags().String("period", "", "")
	cmd.Flags().Int("batch-concurrency", 0, "")
	cmd.Flags().Duration("schedule-interval", 0, "")

	require.NoError(t, cmd.ParseFlags([]string{"--dsn", "postgres://db/m", "--period", "weekly"}))

	cfg := runner.DefaultConfig()
	require.NoError(t, applyFlags(cmd, cfg))

	assert.Equal(t, "postgres://db/m", cfg.DatabaseURL)
	assert.Equal(t, domain.PeriodWeekly, cfg.PeriodType)
	assert.Equal(t, 4, cfg.BatchConcurrency)
	assert.Equal(t, 24*time.Hour, cfg.ScheduleInterval)
}
