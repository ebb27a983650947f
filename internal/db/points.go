package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"freshiesAPI/internal/points"
)

// AwardPoints runs the award_points procedure, which owns the level curve
// and locks the ledger row for the duration of the update.
func (s *Store) AwardPoints(ctx context.Context, childID uuid.UUID, amount int) (*points.AwardResult, error) {
	res := &points.AwardResult{}
	err := s.pool.QueryRow(ctx,
		`SELECT new_total, new_level, leveled_up FROM award_points($1, $2)`,
		childID, amount,
	).Scan(&res.NewTotal, &res.NewLevel, &res.LeveledUp)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to award points: %w", err)
	}
	return res, nil
}

// GetPointsLedger returns ErrNotFound for children never awarded points.
func (s *Store) GetPointsLedger(ctx context.Context, childID uuid.UUID) (*points.Ledger, error) {
	l := &points.Ledger{}
	err := s.pool.QueryRow(ctx, `
		SELECT child_id, total_points, current_level, points_to_next_level, lifetime_points, updated_at
		FROM child_points
		WHERE child_id = $1`, childID,
	).Scan(&l.ChildID, &l.TotalPoints, &l.CurrentLevel, &l.PointsToNextLevel, &l.LifetimePoints, &l.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load points ledger: %w", err)
	}
	return l, nil
}
