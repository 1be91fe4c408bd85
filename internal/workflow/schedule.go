package workflow

import (
	"strings"
	"time"

	apperrors "assistance-workflow/internal/common/errors"
	"assistance-workflow/internal/models"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Schedule validates interview slot requests against the office window.
type Schedule struct {
	// Window bounds in minutes after midnight, both inclusive.
	Start    int
	End      int
	Location *time.Location
}

// DefaultSchedule is the 08:00 to 17:00 office window in Manila time.
func DefaultSchedule() Schedule {
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		loc = time.FixedZone("PST", 8*60*60)
	}
	return Schedule{Start: 8 * 60, End: 17 * 60, Location: loc}
}

// Validate parses a requested (date, time) pair and checks it against the
// window and the scheduling moment. The returned slot is normalized to
// zero-padded YYYY-MM-DD and HH:MM so equal slots compare equal.
func (s Schedule) Validate(date, clock string, now time.Time) (models.InterviewSlot, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return models.InterviewSlot{}, apperrors.NewValidationError("interview", "interview date and time are required")
	}

	day, err := time.ParseInLocation(dateLayout, date, s.Location)
	if err != nil {
		return models.InterviewSlot{}, apperrors.NewValidationError("interviewDate", "interview date must be YYYY-MM-DD")
	}
	hm, err := time.Parse(clockLayout, clock)
	if err != nil {
		return models.InterviewSlot{}, apperrors.NewValidationError("interviewTime", "interview time must be HH:MM")
	}

	minutes := hm.Hour()*60 + hm.Minute()
	if minutes < s.Start || minutes > s.End {
		return models.InterviewSlot{}, apperrors.NewValidationError("interviewTime",
			"interview time must be between "+formatClock(s.Start)+" and "+formatClock(s.End))
	}

	at := time.Date(day.Year(), day.Month(), day.Day(), hm.Hour(), hm.Minute(), 0, 0, s.Location)
	if at.Before(now) {
		return models.InterviewSlot{}, apperrors.NewValidationError("interviewDate", "interview cannot be scheduled in the past")
	}

	return models.InterviewSlot{Date: at.Format(dateLayout), Time: at.Format(clockLayout)}, nil
}

func formatClock(minutes int) string {
	return time.Date(0, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC).Format(clockLayout)
}
