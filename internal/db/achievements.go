package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"freshiesAPI/internal/achievement"
)

// ListActiveAchievements returns the active catalog ordered by tier, then
// requirement value.
func (s *Store) ListActiveAchievements(ctx context.Context) ([]*achievement.Achievement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, name, description, emoji, tier, requirement_type, requirement_value, points, is_active
		FROM achievements
		WHERE is_active
		ORDER BY array_position(ARRAY['bronze', 'silver', 'gold', 'platinum', 'diamond'], tier), requirement_value, code`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievements: %w", err)
	}
	defer rows.Close()

	var achievements []*achievement.Achievement
	for rows.Next() {
		a := &achievement.Achievement{}
		err := rows.Scan(
			&a.ID,
			&a.Code,
			&a.Name,
			&a.Description,
			&a.Emoji,
			&a.Tier,
			&a.RequirementType,
			&a.RequirementValue,
			&a.Points,
			&a.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}

func (s *Store) ListUnlocks(ctx context.Context, childID uuid.UUID) ([]*achievement.Unlock, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT child_id, achievement_id, progress, unlocked_at
		FROM child_achievements
		WHERE child_id = $1
		ORDER BY unlocked_at`, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unlocks: %w", err)
	}
	defer rows.Close()

	var unlocks []*achievement.Unlock
	for rows.Next() {
		u := &achievement.Unlock{}
		if err := rows.Scan(&u.ChildID, &u.AchievementID, &u.Progress, &u.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unlock: %w", err)
		}
		unlocks = append(unlocks, u)
	}
	return unlocks, rows.Err()
}

// InsertUnlock reports false when the child already holds the achievement,
// including when a concurrent pass inserted it first.
func (s *Store) InsertUnlock(ctx context.Context, u *achievement.Unlock) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO child_achievements (child_id, achievement_id, progress, unlocked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (child_id, achievement_id) DO NOTHING`,
		u.ChildID, u.AchievementID, u.Progress, u.UnlockedAt,
	)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("failed to insert unlock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
