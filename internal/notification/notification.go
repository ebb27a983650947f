package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidDevice = errors.New("invalid device registration")

type Type string

const (
	TypeAchievement Type = "achievement"
	TypeLevelUp     Type = "level_up"
	TypeReminder    Type = "reminder"
	TypeTest        Type = "test"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

type Notification struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	RecipientID   uuid.UUID      `json:"recipient_id" db:"recipient_id"`
	ChildID       *uuid.UUID     `json:"child_id,omitempty" db:"child_id"`
	Type          Type           `json:"type" db:"type"`
	Title         string         `json:"title" db:"title"`
	Body          string         `json:"body" db:"body"`
	Data          map[string]any `json:"data" db:"data"`
	Status        Status         `json:"status" db:"status"`
	FailureReason *string        `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	SentAt        *time.Time     `json:"sent_at,omitempty" db:"sent_at"`
}

// Message is what a caller asks to deliver; the service decides who gets it.
type Message struct {
	Type  Type
	Title string
	Body  string
	Data  map[string]any
}

type DeviceToken struct {
	Token    string    `json:"token" db:"token"`
	Platform string    `json:"platform" db:"platform"`
	AddedAt  time.Time `json:"added_at" db:"added_at"`
	LastUsed time.Time `json:"last_used" db:"last_used"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

type ListResponse struct {
	Notifications []*Notification `json:"notifications"`
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
}
