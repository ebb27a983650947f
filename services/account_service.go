package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freshiesAPI/internal/account"
	"freshiesAPI/internal/db"
)

const (
	maxChildNameLength = 40
	minBirthYear       = 1990
)

type AccountStore interface {
	UpsertParent(ctx context.Context, p *account.Parent) (*account.Parent, error)
	GetParentByClerkID(ctx context.Context, clerkID string) (*account.Parent, error)
	DeleteParentByClerkID(ctx context.Context, clerkID string) error
	InsertChild(ctx context.Context, c *account.Child) error
	GetChild(ctx context.Context, childID uuid.UUID) (*account.Child, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]*account.Child, error)
}

type AccountService struct {
	store AccountStore
	log   *zap.SugaredLogger
}

func NewAccountService(store AccountStore, log *zap.SugaredLogger) *AccountService {
	return &AccountService{store: store, log: log}
}

func (s *AccountService) CreateParent(ctx context.Context, clerkID, email, displayName string) (*account.Parent, error) {
	if clerkID == "" {
		return nil, fmt.Errorf("clerk id is required")
	}
	p, err := s.store.UpsertParent(ctx, &account.Parent{
		ID:          uuid.New(),
		ClerkID:     clerkID,
		Email:       email,
		DisplayName: displayName,
	})
	if err != nil {
		return nil, err
	}
	s.log.Infow("parent account saved", "parent_id", p.ID)
	return p, nil
}

// DeleteParent removes the account and all child data. Deleting an unknown
// account is not an error.
func (s *AccountService) DeleteParent(ctx context.Context, clerkID string) error {
	err := s.store.DeleteParentByClerkID(ctx, clerkID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return err
	}
	return nil
}

func (s *AccountService) parent(ctx context.Context, clerkID string) (*account.Parent, error) {
	p, err := s.store.GetParentByClerkID(ctx, clerkID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, account.ErrParentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *AccountService) AddChild(ctx context.Context, clerkID string, req *account.CreateChildRequest) (*account.Child, error) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" || utf8.RuneCountInString(name) > maxChildNameLength {
		return nil, fmt.Errorf("%w: display name must be 1-%d characters", account.ErrInvalidChild, maxChildNameLength)
	}
	if req.BirthYear != nil && (*req.BirthYear < minBirthYear || *req.BirthYear > time.Now().Year()) {
		return nil, fmt.Errorf("%w: birth year %d out of range", account.ErrInvalidChild, *req.BirthYear)
	}

	p, err := s.parent(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	c := &account.Child{
		ID:          uuid.New(),
		ParentID:    p.ID,
		DisplayName: name,
		BirthYear:   req.BirthYear,
	}
	if err := s.store.InsertChild(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *AccountService) ListChildren(ctx context.Context, clerkID string) ([]*account.Child, error) {
	p, err := s.parent(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	return s.store.ListChildren(ctx, p.ID)
}

// AuthorizeChild returns the child when it belongs to the caller.
func (s *AccountService) AuthorizeChild(ctx context.Context, clerkID string, childID uuid.UUID) (*account.Child, error) {
	p, err := s.parent(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	c, err := s.store.GetChild(ctx, childID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, account.ErrChildNotFound
		}
		return nil, err
	}
	if c.ParentID != p.ID {
		return nil, account.ErrChildNotOwned
	}
	return c, nil
}
