package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"freshiesAPI/internal/achievement"
	"freshiesAPI/internal/activity"
)

// evalInput carries what every evaluator may need. Snapshot is read once
// per evaluation pass.
type evalInput struct {
	store   AchievementStore
	childID uuid.UUID
	snap    *activity.Snapshot
	value   int
	now     time.Time
	loc     *time.Location
}

type evaluator func(ctx context.Context, in evalInput) (bool, error)

var evaluators = map[achievement.RequirementType]evaluator{
	achievement.RequirementStreakDays:       evalStreakDays,
	achievement.RequirementTotalCompletions: evalTotalCompletions,
	achievement.RequirementPerfectWeek:      evalPerfectWindow(achievement.PerfectWeekDays),
	achievement.RequirementPerfectMonth:     evalPerfectWindow(achievement.PerfectMonthDays),
	achievement.RequirementEarlyBird:        evalEarlyBird,
	achievement.RequirementNightOwl:         evalNightOwl,
	achievement.RequirementWeekendWarrior:   evalWeekendWarrior,
}

func evalStreakDays(_ context.Context, in evalInput) (bool, error) {
	return in.snap.CurrentStreak >= in.value, nil
}

func evalTotalCompletions(_ context.Context, in evalInput) (bool, error) {
	return in.snap.TotalCompletions >= in.value, nil
}

// evalPerfectWindow ignores the stored requirement value: the window length
// is the threshold.
func evalPerfectWindow(days int) evaluator {
	return func(ctx context.Context, in evalInput) (bool, error) {
		dates, err := in.store.ListCompletionDates(ctx, in.childID, in.now.AddDate(0, 0, -days))
		if err != nil {
			return false, err
		}
		return achievement.DistinctDays(dates) >= days, nil
	}
}

func evalEarlyBird(ctx context.Context, in evalInput) (bool, error) {
	mornings, err := in.store.ListCompletionsBySegment(ctx, in.childID, activity.SegmentMorning)
	if err != nil {
		return false, err
	}
	return achievement.CountBeforeHour(mornings, in.loc, achievement.EarlyBirdHour) >= in.value, nil
}

// evalNightOwl counts every evening completion.
// NOTE: unlike early_bird there is no clock cutoff. This matches what has
// shipped so far; adding one would change who already qualifies.
func evalNightOwl(ctx context.Context, in evalInput) (bool, error) {
	evenings, err := in.store.ListCompletionsBySegment(ctx, in.childID, activity.SegmentEvening)
	if err != nil {
		return false, err
	}
	return len(evenings) >= in.value, nil
}

func evalWeekendWarrior(ctx context.Context, in evalInput) (bool, error) {
	dates, err := in.store.ListCompletionDates(ctx, in.childID, time.Time{})
	if err != nil {
		return false, err
	}
	return achievement.WeekendWeeks(dates) >= in.value, nil
}
