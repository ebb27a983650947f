package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"freshiesAPI/internal/activity"
)

// RecordCompletion inserts c and advances the child's streak in one
// transaction. The streak row is locked so concurrent completions for the
// same child serialize.
func (s *Store) RecordCompletion(ctx context.Context, c *activity.Completion) (*activity.Streak, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO routine_completions (id, child_id, segment, completed_at, completion_date)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.ChildID, c.Segment, c.CompletedAt, c.CompletionDate,
	)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to insert completion: %w", err)
	}

	streak := activity.Streak{ChildID: c.ChildID}
	err = tx.QueryRow(ctx, `
		SELECT current_streak, longest_streak, last_completion_date
		FROM child_streaks
		WHERE child_id = $1
		FOR UPDATE`, c.ChildID,
	).Scan(&streak.CurrentStreak, &streak.LongestStreak, &streak.LastCompletionDate)
	if err != nil && !noRows(err) {
		return nil, fmt.Errorf("failed to load streak: %w", err)
	}

	next := streak.Advance(c.CompletionDate)
	_, err = tx.Exec(ctx, `
		INSERT INTO child_streaks (child_id, current_streak, longest_streak, last_completion_date, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (child_id) DO UPDATE SET
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_completion_date = EXCLUDED.last_completion_date,
			updated_at = NOW()`,
		c.ChildID, next.CurrentStreak, next.LongestStreak, next.LastCompletionDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save streak: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit completion: %w", err)
	}
	return &next, nil
}

// GetActivitySnapshot returns ErrNotFound when the child does not exist.
func (s *Store) GetActivitySnapshot(ctx context.Context, childID uuid.UUID) (*activity.Snapshot, error) {
	var (
		streak activity.Streak
		total  int
	)
	err := s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(cs.current_streak, 0),
			COALESCE(cs.longest_streak, 0),
			cs.last_completion_date,
			(SELECT COUNT(*) FROM routine_completions rc WHERE rc.child_id = c.id)
		FROM children c
		LEFT JOIN child_streaks cs ON cs.child_id = c.id
		WHERE c.id = $1`, childID,
	).Scan(&streak.CurrentStreak, &streak.LongestStreak, &streak.LastCompletionDate, &total)
	if err != nil {
		if noRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load activity snapshot: %w", err)
	}

	today := activity.CalendarDate(s.now(), s.loc)
	return &activity.Snapshot{
		CurrentStreak:    streak.Effective(today),
		TotalCompletions: total,
	}, nil
}

func (s *Store) GetStreak(ctx context.Context, childID uuid.UUID) (*activity.Streak, error) {
	streak := &activity.Streak{ChildID: childID}
	err := s.pool.QueryRow(ctx, `
		SELECT current_streak, longest_streak, last_completion_date
		FROM child_streaks
		WHERE child_id = $1`, childID,
	).Scan(&streak.CurrentStreak, &streak.LongestStreak, &streak.LastCompletionDate)
	if err != nil {
		if noRows(err) {
			return streak, nil
		}
		return nil, fmt.Errorf("failed to load streak: %w", err)
	}
	return streak, nil
}

// ListCompletionDates returns one calendar date per completion since the
// given instant, duplicates included.
func (s *Store) ListCompletionDates(ctx context.Context, childID uuid.UUID, since time.Time) ([]time.Time, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT completion_date
		FROM routine_completions
		WHERE child_id = $1 AND completed_at >= $2
		ORDER BY completion_date`, childID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch completion dates: %w", err)
	}

	dates, err := pgx.CollectRows(rows, pgx.RowTo[time.Time])
	if err != nil {
		return nil, fmt.Errorf("failed to scan completion dates: %w", err)
	}
	return dates, nil
}

func (s *Store) ListCompletionsBySegment(ctx context.Context, childID uuid.UUID, segment activity.Segment) ([]*activity.Completion, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, child_id, segment, completed_at, completion_date
		FROM routine_completions
		WHERE child_id = $1 AND segment = $2
		ORDER BY completed_at`, childID, segment)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch completions: %w", err)
	}
	defer rows.Close()

	var completions []*activity.Completion
	for rows.Next() {
		c := &activity.Completion{}
		if err := rows.Scan(&c.ID, &c.ChildID, &c.Segment, &c.CompletedAt, &c.CompletionDate); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		completions = append(completions, c)
	}
	return completions, rows.Err()
}
