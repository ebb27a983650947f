package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"freshiesAPI/internal/account"
)

// UpsertParent creates the parent for a Clerk user or refreshes its profile
// fields; webhooks may be delivered more than once.
func (s *Store) UpsertParent(ctx context.Context, p *account.Parent) (*account.Parent, error) {
	out := &account.Parent{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO parents (id, clerk_id, email, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (clerk_id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			updated_at = NOW()
		RETURNING id, clerk_id, email, display_name, created_at, updated_at`,
		p.ID, p.ClerkID, p.Email, p.DisplayName,
	).Scan(&out.ID, &out.ClerkID, &out.Email, &out.DisplayName, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert parent: %w", err)
	}
	return out, nil
}

func (s *Store) GetParentByClerkID(ctx context.Context, clerkID string) (*account.Parent, error) {
	p := &account.Parent{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, clerk_id, email, display_name, created_at, updated_at
		FROM parents
		WHERE clerk_id = $1`, clerkID,
	).Scan(&p.ID, &p.ClerkID, &p.Email, &p.DisplayName, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if noRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load parent: %w", err)
	}
	return p, nil
}

// DeleteParentByClerkID removes the parent and, by cascade, every child
// and all of their activity.
func (s *Store) DeleteParentByClerkID(ctx context.Context, clerkID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM parents WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete parent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) InsertChild(ctx context.Context, c *account.Child) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO children (id, parent_id, display_name, birth_year, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at`,
		c.ID, c.ParentID, c.DisplayName, c.BirthYear,
	).Scan(&c.CreatedAt)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to insert child: %w", err)
	}
	return nil
}

func (s *Store) GetChild(ctx context.Context, childID uuid.UUID) (*account.Child, error) {
	c := &account.Child{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, parent_id, display_name, birth_year, created_at
		FROM children
		WHERE id = $1`, childID,
	).Scan(&c.ID, &c.ParentID, &c.DisplayName, &c.BirthYear, &c.CreatedAt)
	if err != nil {
		if noRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load child: %w", err)
	}
	return c, nil
}

func (s *Store) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*account.Child, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, parent_id, display_name, birth_year, created_at
		FROM children
		WHERE parent_id = $1
		ORDER BY created_at`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch children: %w", err)
	}
	defer rows.Close()

	children := []*account.Child{}
	for rows.Next() {
		c := &account.Child{}
		if err := rows.Scan(&c.ID, &c.ParentID, &c.DisplayName, &c.BirthYear, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, c)
	}
	return children, rows.Err()
}
