package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freshiesAPI/internal/db"
	"freshiesAPI/internal/metrics"
	"freshiesAPI/internal/notification"
	"freshiesAPI/internal/points"
)

type PointsStore interface {
	AwardPoints(ctx context.Context, childID uuid.UUID, amount int) (*points.AwardResult, error)
	GetPointsLedger(ctx context.Context, childID uuid.UUID) (*points.Ledger, error)
}

type PointsService struct {
	store    PointsStore
	notifier Notifier
	log      *zap.SugaredLogger
}

func NewPointsService(store PointsStore, notifier Notifier, log *zap.SugaredLogger) *PointsService {
	return &PointsService{store: store, notifier: notifier, log: log}
}

// AwardPoints adds a positive amount to the child's ledger. The level curve
// lives in the award_points procedure so concurrent awards serialize on the
// ledger row.
func (s *PointsService) AwardPoints(ctx context.Context, childID uuid.UUID, amount int) (*points.AwardResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", points.ErrInvalidAmount, amount)
	}

	res, err := s.store.AwardPoints(ctx, childID, amount)
	if err != nil {
		return nil, err
	}
	metrics.PointsAwarded.Add(float64(amount))

	if res.LeveledUp {
		metrics.LevelUps.Inc()
		s.log.Infow("level up", "child_id", childID, "level", res.NewLevel)
		err := s.notifier.Notify(ctx, childID, &notification.Message{
			Type:  notification.TypeLevelUp,
			Title: "⬆️ Level up!",
			Body:  fmt.Sprintf("You reached level %d", res.NewLevel),
			Data: map[string]any{
				"type":  string(notification.TypeLevelUp),
				"level": res.NewLevel,
			},
		})
		if err != nil {
			s.log.Warnw("level-up notification dropped", "child_id", childID, "error", err)
		}
	}
	return res, nil
}

// GetLedger reports the starting ledger for children never awarded points.
func (s *PointsService) GetLedger(ctx context.Context, childID uuid.UUID) (*points.Ledger, error) {
	l, err := s.store.GetPointsLedger(ctx, childID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return points.DefaultLedger(childID), nil
		}
		return nil, err
	}
	return l, nil
}
