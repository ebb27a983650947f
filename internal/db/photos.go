package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"freshiesAPI/internal/photo"
)

func (s *Store) InsertPhoto(ctx context.Context, p *photo.Photo) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO progress_photos (id, child_id, tag, url, taken_at)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.ChildID, p.Tag, p.URL, p.TakenAt,
	)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to insert photo: %w", err)
	}
	return nil
}

func (s *Store) ListPhotos(ctx context.Context, childID uuid.UUID) ([]*photo.Photo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, child_id, tag, url, taken_at
		FROM progress_photos
		WHERE child_id = $1
		ORDER BY taken_at`, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch photos: %w", err)
	}
	defer rows.Close()

	var photos []*photo.Photo
	for rows.Next() {
		p := &photo.Photo{}
		if err := rows.Scan(&p.ID, &p.ChildID, &p.Tag, &p.URL, &p.TakenAt); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}
