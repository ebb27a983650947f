package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"freshiesAPI/internal/reminder"
)

// UpsertReminder keeps one reminder per child and segment. On update the
// stored id and last_sent_on win.
func (s *Store) UpsertReminder(ctx context.Context, r *reminder.Reminder) (*reminder.Reminder, error) {
	out := &reminder.Reminder{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO reminders (id, child_id, segment, time_of_day, enabled)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (child_id, segment) DO UPDATE SET
			time_of_day = EXCLUDED.time_of_day,
			enabled = EXCLUDED.enabled
		RETURNING id, child_id, segment, time_of_day, enabled, last_sent_on`,
		r.ID, r.ChildID, r.Segment, r.TimeOfDay, r.Enabled,
	).Scan(&out.ID, &out.ChildID, &out.Segment, &out.TimeOfDay, &out.Enabled, &out.LastSentOn)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to save reminder: %w", err)
	}
	return out, nil
}

func (s *Store) ListReminders(ctx context.Context, childID uuid.UUID) ([]*reminder.Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT id, child_id, segment, time_of_day, enabled, last_sent_on
		FROM reminders
		WHERE child_id = $1
		ORDER BY time_of_day`, childID)
}

func (s *Store) ListEnabledReminders(ctx context.Context) ([]*reminder.Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT id, child_id, segment, time_of_day, enabled, last_sent_on
		FROM reminders
		WHERE enabled
		ORDER BY time_of_day`)
}

func (s *Store) queryReminders(ctx context.Context, query string, args ...any) ([]*reminder.Reminder, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reminders: %w", err)
	}
	defer rows.Close()

	reminders := []*reminder.Reminder{}
	for rows.Next() {
		r := &reminder.Reminder{}
		if err := rows.Scan(&r.ID, &r.ChildID, &r.Segment, &r.TimeOfDay, &r.Enabled, &r.LastSentOn); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// ClaimReminder stamps last_sent_on with day unless it is already there.
// Only the caller that gets true should send.
func (s *Store) ClaimReminder(ctx context.Context, id uuid.UUID, day time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE reminders
		SET last_sent_on = $2
		WHERE id = $1 AND (last_sent_on IS NULL OR last_sent_on < $2)`, id, day)
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
