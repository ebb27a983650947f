package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrParentNotFound = errors.New("parent account not found")
	ErrChildNotFound  = errors.New("child profile not found")
	ErrChildNotOwned  = errors.New("child profile belongs to another account")
	ErrInvalidChild   = errors.New("invalid child profile")
)

type Parent struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ClerkID     string    `json:"clerkId" db:"clerk_id"`
	Email       string    `json:"email" db:"email"`
	DisplayName string    `json:"displayName" db:"display_name"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type Child struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ParentID    uuid.UUID `json:"parentId" db:"parent_id"`
	DisplayName string    `json:"displayName" db:"display_name"`
	BirthYear   *int      `json:"birthYear,omitempty" db:"birth_year"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

type CreateChildRequest struct {
	DisplayName string `json:"displayName" validate:"required"`
	BirthYear   *int   `json:"birthYear,omitempty"`
}
