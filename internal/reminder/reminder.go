package reminder

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"freshiesAPI/internal/activity"
)

var ErrInvalidTime = errors.New("reminder time must be between 00:00 and 23:59")

const (
	// MinSamples is how many past completions a segment needs before the
	// suggestion follows the child's habits instead of the default.
	MinSamples = 3
	lead       = 15
	granule    = 5
)

type window struct {
	def, from, to int
}

var windows = map[activity.Segment]window{
	activity.SegmentMorning:   {def: 7*60 + 30, from: 5 * 60, to: 11*60 + 55},
	activity.SegmentAfternoon: {def: 15*60 + 30, from: 12 * 60, to: 16*60 + 55},
	activity.SegmentEvening:   {def: 20 * 60, from: 17 * 60, to: 23*60 + 55},
}

// Reminder fires once per local day at TimeOfDay minutes past midnight.
type Reminder struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	ChildID    uuid.UUID        `json:"child_id" db:"child_id"`
	Segment    activity.Segment `json:"segment" db:"segment"`
	TimeOfDay  int              `json:"time_of_day" db:"time_of_day"`
	Enabled    bool             `json:"enabled" db:"enabled"`
	LastSentOn *time.Time       `json:"last_sent_on,omitempty" db:"last_sent_on"`
}

// Due reports whether the reminder should fire at minuteOfDay on today
// (a calendar date at midnight UTC).
func (r *Reminder) Due(today time.Time, minuteOfDay int) bool {
	if !r.Enabled || minuteOfDay < r.TimeOfDay {
		return false
	}
	return r.LastSentOn == nil || r.LastSentOn.Before(today)
}

func (r *Reminder) Clock() string {
	return FormatClock(r.TimeOfDay)
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func ValidTime(minutes int) error {
	if minutes < 0 || minutes >= 24*60 {
		return ErrInvalidTime
	}
	return nil
}

// SuggestTime proposes a reminder time for segment from the child's past
// completions in that segment: fifteen minutes ahead of their average
// completion time, rounded down to five minutes and kept inside the
// segment's window.
func SuggestTime(segment activity.Segment, completions []*activity.Completion, loc *time.Location) int {
	w, ok := windows[segment]
	if !ok {
		w = windows[activity.SegmentMorning]
	}
	if len(completions) < MinSamples {
		return w.def
	}
	if loc == nil {
		loc = time.UTC
	}

	total := 0
	for _, c := range completions {
		local := c.CompletedAt.In(loc)
		total += local.Hour()*60 + local.Minute()
	}
	suggested := total/len(completions) - lead
	suggested = max(w.from, min(suggested, w.to))
	return suggested - suggested%granule
}

// ParseClock reads "HH:MM" as minutes past midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
