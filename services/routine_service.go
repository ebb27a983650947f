package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freshiesAPI/internal/account"
	"freshiesAPI/internal/achievement"
	"freshiesAPI/internal/activity"
	"freshiesAPI/internal/db"
	"freshiesAPI/internal/metrics"
)

// clockSkew is how far ahead of server time a device clock may be.
const clockSkew = 5 * time.Minute

type RoutineStore interface {
	RecordCompletion(ctx context.Context, c *activity.Completion) (*activity.Streak, error)
	GetActivitySnapshot(ctx context.Context, childID uuid.UUID) (*activity.Snapshot, error)
	GetStreak(ctx context.Context, childID uuid.UUID) (*activity.Streak, error)
}

type UnlockEvaluator interface {
	EvaluateAndUnlock(ctx context.Context, childID uuid.UUID) []*achievement.Achievement
}

type CompletionResult struct {
	Completion *activity.Completion       `json:"completion"`
	Streak     *activity.Streak           `json:"streak"`
	Unlocked   []*achievement.Achievement `json:"unlocked"`
}

type RoutineSummary struct {
	activity.Snapshot
	LongestStreak      int        `json:"longest_streak"`
	LastCompletionDate *time.Time `json:"last_completion_date,omitempty"`
}

type RoutineService struct {
	store    RoutineStore
	unlocker UnlockEvaluator
	loc      *time.Location
	now      func() time.Time
	log      *zap.SugaredLogger
}

func NewRoutineService(store RoutineStore, unlocker UnlockEvaluator, loc *time.Location, log *zap.SugaredLogger) *RoutineService {
	if loc == nil {
		loc = time.UTC
	}
	return &RoutineService{store: store, unlocker: unlocker, loc: loc, now: time.Now, log: log}
}

// RecordCompletion stores a finished routine, advances the streak and runs
// an achievement pass. A zero completedAt means now.
func (s *RoutineService) RecordCompletion(ctx context.Context, childID uuid.UUID, segment activity.Segment, completedAt time.Time) (*CompletionResult, error) {
	if !segment.Valid() {
		return nil, activity.ErrInvalidSegment
	}
	now := s.now()
	if completedAt.IsZero() {
		completedAt = now
	}
	if completedAt.After(now.Add(clockSkew)) {
		return nil, activity.ErrFutureCompletion
	}

	c := &activity.Completion{
		ID:             uuid.New(),
		ChildID:        childID,
		Segment:        segment,
		CompletedAt:    completedAt,
		CompletionDate: activity.CalendarDate(completedAt, s.loc),
	}
	streak, err := s.store.RecordCompletion(ctx, c)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, account.ErrChildNotFound
		}
		return nil, err
	}
	metrics.RoutineCompletions.WithLabelValues(string(segment)).Inc()
	s.log.Infow("routine completed", "child_id", childID, "segment", segment, "streak", streak.CurrentStreak)

	return &CompletionResult{
		Completion: c,
		Streak:     streak,
		Unlocked:   s.unlocker.EvaluateAndUnlock(ctx, childID),
	}, nil
}

func (s *RoutineService) GetSnapshot(ctx context.Context, childID uuid.UUID) (*RoutineSummary, error) {
	snap, err := s.store.GetActivitySnapshot(ctx, childID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, account.ErrChildNotFound
		}
		return nil, err
	}
	streak, err := s.store.GetStreak(ctx, childID)
	if err != nil {
		return nil, err
	}
	return &RoutineSummary{
		Snapshot:           *snap,
		LongestStreak:      streak.LongestStreak,
		LastCompletionDate: streak.LastCompletionDate,
	}, nil
}
