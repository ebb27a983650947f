package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freshiesAPI/internal/achievement"
	"freshiesAPI/internal/activity"
	"freshiesAPI/internal/db"
	"freshiesAPI/internal/metrics"
	"freshiesAPI/internal/notification"
	"freshiesAPI/internal/observability"
	"freshiesAPI/internal/points"
)

type AchievementStore interface {
	CatalogSource
	GetActivitySnapshot(ctx context.Context, childID uuid.UUID) (*activity.Snapshot, error)
	ListUnlocks(ctx context.Context, childID uuid.UUID) ([]*achievement.Unlock, error)
	InsertUnlock(ctx context.Context, u *achievement.Unlock) (bool, error)
	ListCompletionDates(ctx context.Context, childID uuid.UUID, since time.Time) ([]time.Time, error)
	ListCompletionsBySegment(ctx context.Context, childID uuid.UUID, segment activity.Segment) ([]*activity.Completion, error)
}

type PointsAwarder interface {
	AwardPoints(ctx context.Context, childID uuid.UUID, amount int) (*points.AwardResult, error)
}

// Notifier is best-effort: callers log a failed Notify and carry on.
type Notifier interface {
	Notify(ctx context.Context, childID uuid.UUID, msg *notification.Message) error
}

type AchievementService struct {
	store    AchievementStore
	catalog  *CachedCatalog
	points   PointsAwarder
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
	log      *zap.SugaredLogger
}

func NewAchievementService(store AchievementStore, catalog *CachedCatalog, awarder PointsAwarder, notifier Notifier, loc *time.Location, log *zap.SugaredLogger) *AchievementService {
	if loc == nil {
		loc = time.UTC
	}
	return &AchievementService{
		store:    store,
		catalog:  catalog,
		points:   awarder,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
		log:      log,
	}
}

// absorb records an evaluation-time failure. Nothing here reaches the
// caller: the next completion retries the whole pass.
func (s *AchievementService) absorb(stage string, childID uuid.UUID, err error) {
	metrics.EvaluationsAbsorbed.WithLabelValues(stage).Inc()
	if errors.Is(err, db.ErrNotFound) {
		s.log.Infow("achievement evaluation skipped", "stage", stage, "child_id", childID)
		return
	}
	s.log.Errorw("achievement evaluation error", "stage", stage, "child_id", childID, "error", err)
	observability.CaptureErr(fmt.Errorf("achievement %s for child %s: %w", stage, childID, err))
}

// EvaluateAndUnlock checks every active achievement the child has not
// unlocked yet, in catalog order, and unlocks the ones now met. Each new
// unlock awards its points and sends a celebration. It returns only the
// achievements unlocked by this call and never fails.
func (s *AchievementService) EvaluateAndUnlock(ctx context.Context, childID uuid.UUID) []*achievement.Achievement {
	unlocked := []*achievement.Achievement{}

	snap, err := s.store.GetActivitySnapshot(ctx, childID)
	if err != nil {
		s.absorb("snapshot", childID, err)
		return unlocked
	}

	catalog, err := s.catalog.Active(ctx)
	if err != nil {
		s.absorb("catalog", childID, err)
		return unlocked
	}

	have, err := s.unlockedIDs(ctx, childID)
	if err != nil {
		s.absorb("unlocks", childID, err)
		return unlocked
	}

	now := s.now()
	for _, a := range catalog {
		if _, ok := have[a.ID]; ok {
			continue
		}

		eval, ok := evaluators[a.RequirementType]
		if !ok {
			s.log.Warnw("unknown requirement type", "achievement", a.Code, "requirement_type", a.RequirementType)
			continue
		}

		met, err := eval(ctx, evalInput{
			store:   s.store,
			childID: childID,
			snap:    snap,
			value:   a.RequirementValue,
			now:     now,
			loc:     s.loc,
		})
		if err != nil {
			s.absorb("evaluate", childID, err)
			continue
		}
		if !met {
			continue
		}

		inserted, err := s.store.InsertUnlock(ctx, &achievement.Unlock{
			ChildID:       childID,
			AchievementID: a.ID,
			Progress:      a.RequirementValue,
			UnlockedAt:    now,
		})
		if err != nil {
			// A failed write likely means the store is unhealthy; stop here.
			s.absorb("insert_unlock", childID, err)
			break
		}
		if !inserted {
			s.log.Debugw("achievement already unlocked", "child_id", childID, "achievement", a.Code)
			continue
		}

		metrics.AchievementsUnlocked.WithLabelValues(string(a.Tier)).Inc()
		s.log.Infow("achievement unlocked", "child_id", childID, "achievement", a.Code, "points", a.Points)

		if a.Points > 0 {
			if _, err := s.points.AwardPoints(ctx, childID, a.Points); err != nil {
				s.absorb("award_points", childID, err)
			}
		}
		s.celebrate(ctx, childID, a)

		unlocked = append(unlocked, a)
	}

	return unlocked
}

// celebrate drops the notification on failure. A missed celebration is
// acceptable; the unlock itself is already stored.
func (s *AchievementService) celebrate(ctx context.Context, childID uuid.UUID, a *achievement.Achievement) {
	err := s.notifier.Notify(ctx, childID, &notification.Message{
		Type:  notification.TypeAchievement,
		Title: fmt.Sprintf("%s %s", a.Emoji, a.Name),
		Body:  fmt.Sprintf("+%d points", a.Points),
		Data: map[string]any{
			"type":           string(notification.TypeAchievement),
			"achievement_id": a.ID.String(),
			"code":           a.Code,
			"tier":           string(a.Tier),
			"points":         a.Points,
		},
	})
	if err != nil {
		s.log.Warnw("achievement notification dropped", "child_id", childID, "achievement", a.Code, "error", err)
	}
}

func (s *AchievementService) unlockedIDs(ctx context.Context, childID uuid.UUID) (map[uuid.UUID]*achievement.Unlock, error) {
	unlocks, err := s.store.ListUnlocks(ctx, childID)
	if err != nil {
		return nil, err
	}
	have := make(map[uuid.UUID]*achievement.Unlock, len(unlocks))
	for _, u := range unlocks {
		have[u.AchievementID] = u
	}
	return have, nil
}

// GetAchievementsWithProgress lists the active catalog with the child's
// progress on each entry. A missing snapshot shows zero progress.
func (s *AchievementService) GetAchievementsWithProgress(ctx context.Context, childID uuid.UUID) ([]*achievement.WithProgress, error) {
	catalog, err := s.catalog.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievement catalog: %w", err)
	}

	have, err := s.unlockedIDs(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unlocks: %w", err)
	}

	snap, err := s.store.GetActivitySnapshot(ctx, childID)
	if err != nil {
		s.log.Warnw("progress without snapshot", "child_id", childID, "error", err)
		snap = nil
	}

	out := make([]*achievement.WithProgress, 0, len(catalog))
	for _, a := range catalog {
		wp := &achievement.WithProgress{Achievement: *a}
		if u, ok := have[a.ID]; ok {
			wp.IsUnlocked = true
			unlockedAt := u.UnlockedAt
			wp.UnlockedAt = &unlockedAt
		}
		wp.Progress = achievement.Progress(a, snap, wp.IsUnlocked)
		out = append(out, wp)
	}
	return out, nil
}
