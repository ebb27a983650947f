package activity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidSegment   = errors.New("invalid routine segment")
	ErrFutureCompletion = errors.New("completion time is in the future")
)

type Segment string

const (
	SegmentMorning   Segment = "morning"
	SegmentAfternoon Segment = "afternoon"
	SegmentEvening   Segment = "evening"
)

var Segments = []Segment{SegmentMorning, SegmentAfternoon, SegmentEvening}

func (s Segment) Valid() bool {
	switch s {
	case SegmentMorning, SegmentAfternoon, SegmentEvening:
		return true
	}
	return false
}

// Completion is one routine marked done by a child. CompletionDate is the
// local calendar day of CompletedAt, stored as midnight UTC.
type Completion struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ChildID        uuid.UUID `json:"child_id" db:"child_id"`
	Segment        Segment   `json:"segment" db:"segment"`
	CompletedAt    time.Time `json:"completed_at" db:"completed_at"`
	CompletionDate time.Time `json:"completion_date" db:"completion_date"`
}

type Snapshot struct {
	CurrentStreak    int `json:"current_streak"`
	TotalCompletions int `json:"total_completions"`
}

type Streak struct {
	ChildID            uuid.UUID  `json:"child_id" db:"child_id"`
	CurrentStreak      int        `json:"current_streak" db:"current_streak"`
	LongestStreak      int        `json:"longest_streak" db:"longest_streak"`
	LastCompletionDate *time.Time `json:"last_completion_date" db:"last_completion_date"`
}

// CalendarDate returns the day t falls on in loc, as midnight UTC.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// Advance returns the streak after a completion on day. Backfilled days
// older than the last completion leave the counter untouched.
func (s Streak) Advance(day time.Time) Streak {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	next := s

	switch {
	case s.LastCompletionDate == nil:
		next.CurrentStreak = 1
	case sameDay(*s.LastCompletionDate, day):
		return s
	case day.Before(*s.LastCompletionDate):
		return s
	case sameDay(s.LastCompletionDate.AddDate(0, 0, 1), day):
		next.CurrentStreak = s.CurrentStreak + 1
	default:
		next.CurrentStreak = 1
	}

	next.LastCompletionDate = &day
	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	return next
}

// Effective is the streak as seen on today: it only counts while the last
// completion was today or yesterday.
func (s Streak) Effective(today time.Time) int {
	if s.LastCompletionDate == nil {
		return 0
	}
	last := *s.LastCompletionDate
	if sameDay(last, today) || sameDay(last.AddDate(0, 0, 1), today) {
		return s.CurrentStreak
	}
	return 0
}
