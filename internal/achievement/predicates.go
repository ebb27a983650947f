package achievement

import (
	"time"

	"freshiesAPI/internal/activity"
)

const (
	PerfectWeekDays  = 7
	PerfectMonthDays = 30

	// EarlyBirdHour is the exclusive local-hour cutoff for an early morning routine.
	EarlyBirdHour = 8
)

func dayKey(t time.Time) [3]int {
	return [3]int{t.Year(), int(t.Month()), t.Day()}
}

// DistinctDays counts distinct calendar dates; several completions on one
// day count once.
func DistinctDays(dates []time.Time) int {
	seen := make(map[[3]int]struct{}, len(dates))
	for _, d := range dates {
		seen[dayKey(d)] = struct{}{}
	}
	return len(seen)
}

// CountBeforeHour counts completions whose local hour in loc is strictly
// less than hour.
func CountBeforeHour(completions []*activity.Completion, loc *time.Location, hour int) int {
	if loc == nil {
		loc = time.UTC
	}
	n := 0
	for _, c := range completions {
		if c.CompletedAt.In(loc).Hour() < hour {
			n++
		}
	}
	return n
}

// EpochWeek buckets a calendar date as floor(days since 1970-01-01 / 7).
// Buckets run Thursday to Wednesday, so a Saturday and the following Sunday
// always share one.
func EpochWeek(d time.Time) int64 {
	days := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
	week := days / 7
	if days%7 != 0 && days < 0 {
		week--
	}
	return week
}

// WeekendWeeks counts distinct epoch weeks holding at least one Saturday or
// Sunday completion.
func WeekendWeeks(dates []time.Time) int {
	weeks := make(map[int64]struct{})
	for _, d := range dates {
		switch d.Weekday() {
		case time.Saturday, time.Sunday:
			weeks[EpochWeek(d)] = struct{}{}
		}
	}
	return len(weeks)
}

// Progress is the value shown to the UI. Unlocked achievements always show
// the full requirement. Only streak and completion counts have a natural
// partial metric; the pattern checks show 0 until unlocked.
func Progress(a *Achievement, snap *activity.Snapshot, unlocked bool) int {
	if unlocked {
		return a.RequirementValue
	}
	if snap == nil {
		return 0
	}

	var current int
	switch a.RequirementType {
	case RequirementStreakDays:
		current = snap.CurrentStreak
	case RequirementTotalCompletions:
		current = snap.TotalCompletions
	default:
		return 0
	}
	return min(current, a.RequirementValue)
}
