package workflow

import (
	"time"

	"assistance-workflow/internal/models"
)

const day = 24 * time.Hour

// DaysWaiting is the whole number of days since the last transition.
func DaysWaiting(updatedAt, now time.Time) int {
	if now.Before(updatedAt) {
		return 0
	}
	return int(now.Sub(updatedAt) / day)
}

// decorate fills the derived waiting fields. Only the mayor queue carries
// the urgent flag.
func decorate(items []models.ApplicationSummary, now time.Time, urgentAfter int) {
	for i := range items {
		items[i].DaysWaiting = DaysWaiting(items[i].UpdatedAt, now)
		items[i].Urgent = items[i].Status == models.StatusWaitingMayor && items[i].DaysWaiting >= urgentAfter
	}
}
