package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"freshiesAPI/internal/notification"
)

func (s *Store) InsertNotification(ctx context.Context, n *notification.Notification) error {
	if n.Data == nil {
		n.Data = map[string]any{}
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, recipient_id, child_id, type, title, body, data, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at`,
		n.ID, n.RecipientID, n.ChildID, n.Type, n.Title, n.Body, n.Data, n.Status,
	).Scan(&n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *Store) MarkNotificationSent(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET status = $2, sent_at = NOW(), failure_reason = NULL
		WHERE id = $1`, id, notification.StatusSent)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

func (s *Store) MarkNotificationFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE notifications
		SET status = $2, failed_at = NOW(), failure_reason = $3
		WHERE id = $1`, id, notification.StatusFailed, reason)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*notification.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, recipient_id, child_id, type, title, body, data, status, failure_reason, created_at, sent_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, recipientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer rows.Close()

	list := []*notification.Notification{}
	for rows.Next() {
		n := &notification.Notification{}
		err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&n.ChildID,
			&n.Type,
			&n.Title,
			&n.Body,
			&n.Data,
			&n.Status,
			&n.FailureReason,
			&n.CreatedAt,
			&n.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (s *Store) UpsertDeviceToken(ctx context.Context, parentID uuid.UUID, token, platform string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO device_tokens (parent_id, token, platform, added_at, last_used)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (parent_id, token) DO UPDATE SET
			platform = EXCLUDED.platform,
			last_used = NOW()`,
		parentID, token, platform,
	)
	if err != nil {
		return fmt.Errorf("failed to save device token: %w", err)
	}
	return nil
}

func (s *Store) ListDeviceTokens(ctx context.Context, parentID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT token, platform, added_at, last_used
		FROM device_tokens
		WHERE parent_id = $1`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform, &t.AddedAt, &t.LastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
