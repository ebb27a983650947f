package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freshiesAPI/internal/account"
	"freshiesAPI/internal/db"
	"freshiesAPI/internal/notification"
)

const (
	defaultNotificationPageSize = 20
	maxNotificationPageSize     = 100
)

type NotificationStore interface {
	DeliveryStore
	GetChild(ctx context.Context, childID uuid.UUID) (*account.Child, error)
	GetParentByClerkID(ctx context.Context, clerkID string) (*account.Parent, error)
	InsertNotification(ctx context.Context, n *notification.Notification) error
	ListNotifications(ctx context.Context, recipientID uuid.UUID, limit, offset int) ([]*notification.Notification, error)
	UpsertDeviceToken(ctx context.Context, parentID uuid.UUID, token, platform string) error
	ListDeviceTokens(ctx context.Context, parentID uuid.UUID) ([]notification.DeviceToken, error)
}

type NotificationService struct {
	store      NotificationStore
	dispatcher *NotificationDispatcher
	log        *zap.SugaredLogger
}

func NewNotificationService(store NotificationStore, log *zap.SugaredLogger) *NotificationService {
	return &NotificationService{
		store:      store,
		dispatcher: NewNotificationDispatcher(store, log),
		log:        log,
	}
}

func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.dispatcher.SetPushProvider(p)
}

func (s *NotificationService) Stop() {
	s.dispatcher.Stop()
}

// Notify delivers msg to the parent account that owns childID. Children
// have no devices of their own.
func (s *NotificationService) Notify(ctx context.Context, childID uuid.UUID, msg *notification.Message) error {
	child, err := s.store.GetChild(ctx, childID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return account.ErrChildNotFound
		}
		return fmt.Errorf("failed to resolve recipient: %w", err)
	}
	return s.NotifyParent(ctx, child.ParentID, &childID, msg)
}

func (s *NotificationService) NotifyParent(ctx context.Context, parentID uuid.UUID, childID *uuid.UUID, msg *notification.Message) error {
	n := &notification.Notification{
		ID:          uuid.New(),
		RecipientID: parentID,
		ChildID:     childID,
		Type:        msg.Type,
		Title:       msg.Title,
		Body:        msg.Body,
		Data:        msg.Data,
		Status:      notification.StatusPending,
	}
	if err := s.store.InsertNotification(ctx, n); err != nil {
		return err
	}

	tokens, err := s.store.ListDeviceTokens(ctx, parentID)
	if err != nil {
		// The row is stored; it will show in the in-app list even if push fails.
		s.log.Warnw("failed to load device tokens", "parent_id", parentID, "error", err)
	}

	if !s.dispatcher.Dispatch(n, tokens) {
		return fmt.Errorf("notification %s not queued", n.ID)
	}
	return nil
}

func (s *NotificationService) parent(ctx context.Context, clerkID string) (*account.Parent, error) {
	p, err := s.store.GetParentByClerkID(ctx, clerkID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, account.ErrParentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error {
	if req.Token == "" {
		return fmt.Errorf("%w: empty token", notification.ErrInvalidDevice)
	}
	switch req.Platform {
	case "ios", "android", "web":
	default:
		return fmt.Errorf("%w: unknown platform %q", notification.ErrInvalidDevice, req.Platform)
	}

	p, err := s.parent(ctx, clerkID)
	if err != nil {
		return err
	}
	return s.store.UpsertDeviceToken(ctx, p.ID, req.Token, req.Platform)
}

func (s *NotificationService) ListNotifications(ctx context.Context, clerkID string, page, pageSize int) (*notification.ListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultNotificationPageSize
	}
	pageSize = min(pageSize, maxNotificationPageSize)

	p, err := s.parent(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	list, err := s.store.ListNotifications(ctx, p.ID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return &notification.ListResponse{Notifications: list, Page: page, PageSize: pageSize}, nil
}

func (s *NotificationService) SendTestNotification(ctx context.Context, clerkID string) error {
	p, err := s.parent(ctx, clerkID)
	if err != nil {
		return err
	}
	return s.NotifyParent(ctx, p.ID, nil, &notification.Message{
		Type:  notification.TypeTest,
		Title: "🔔 Test notification",
		Body:  "Notifications are working!",
		Data:  map[string]any{"type": string(notification.TypeTest)},
	})
}
