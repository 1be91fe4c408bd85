package workflow

import (
	"testing"
	"time"

	apperrors "assistance-workflow/internal/common/errors"
	"assistance-workflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_Validate(t *testing.T) {
	sched := DefaultSchedule()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, sched.Location)

	tests := []struct {
		name    string
		date    string
		clock   string
		want    models.InterviewSlot
		wantErr bool
	}{
		{name: "inside window", date: "2025-03-10", clock: "10:00", want: models.InterviewSlot{Date: "2025-03-10", Time: "10:00"}},
		{name: "window start inclusive", date: "2025-03-10", clock: "08:00", want: models.InterviewSlot{Date: "2025-03-10", Time: "08:00"}},
		{name: "window end inclusive", date: "2025-03-10", clock: "17:00", want: models.InterviewSlot{Date: "2025-03-10", Time: "17:00"}},
		{name: "single digit hour normalized", date: "2025-03-10", clock: "9:30", want: models.InterviewSlot{Date: "2025-03-10", Time: "09:30"}},
		{name: "exactly now", date: "2025-03-01", clock: "09:00", want: models.InterviewSlot{Date: "2025-03-01", Time: "09:00"}},
		{name: "before window", date: "2025-03-10", clock: "07:59", wantErr: true},
		{name: "after window", date: "2025-03-10", clock: "17:01", wantErr: true},
		{name: "earlier today", date: "2025-03-01", clock: "08:30", wantErr: true},
		{name: "past day", date: "2025-02-28", clock: "10:00", wantErr: true},
		{name: "malformed date", date: "10/03/2025", clock: "10:00", wantErr: true},
		{name: "malformed time", date: "2025-03-10", clock: "10am", wantErr: true},
		{name: "missing", date: "", clock: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, err := sched.Validate(tt.date, tt.clock, now)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperrors.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, slot)
		})
	}
}

func TestSchedule_UsesConfiguredLocation(t *testing.T) {
	sched := DefaultSchedule()
	// 2025-03-10 01:30 UTC is 09:30 in Manila.
	now := time.Date(2025, 3, 10, 1, 30, 0, 0, time.UTC)

	_, err := sched.Validate("2025-03-10", "09:00", now)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = sched.Validate("2025-03-10", "10:00", now)
	assert.NoError(t, err)
}

func TestDaysWaiting(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysWaiting(now.Add(-23*time.Hour), now))
	assert.Equal(t, 1, DaysWaiting(now.Add(-24*time.Hour), now))
	assert.Equal(t, 2, DaysWaiting(now.Add(-71*time.Hour), now))
	assert.Equal(t, 3, DaysWaiting(now.Add(-72*time.Hour), now))
	assert.Equal(t, 0, DaysWaiting(now.Add(time.Hour), now))
}

func TestDecorate_FlagsOnlyMayorQueue(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	items := []models.ApplicationSummary{
		{ID: "a", Status: models.StatusWaitingMayor, UpdatedAt: now.Add(-4 * day)},
		{ID: "b", Status: models.StatusWaitingMayor, UpdatedAt: now.Add(-2 * day)},
		{ID: "c", Status: models.StatusWaitingHead, UpdatedAt: now.Add(-9 * day)},
	}

	decorate(items, now, 3)

	assert.Equal(t, 4, items[0].DaysWaiting)
	assert.True(t, items[0].Urgent)
	assert.False(t, items[1].Urgent)
	assert.Equal(t, 9, items[2].DaysWaiting)
	assert.False(t, items[2].Urgent)
}
