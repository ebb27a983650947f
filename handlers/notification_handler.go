package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"freshiesAPI/internal/notification"
	"freshiesAPI/middleware"
)

type NotificationService interface {
	ListNotifications(ctx context.Context, clerkID string, page, pageSize int) (*notification.ListResponse, error)
	RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error
	SendTestNotification(ctx context.Context, clerkID string) error
}

type NotificationHandler struct {
	notificationService NotificationService
	log                 *zap.SugaredLogger
}

func NewNotificationHandler(notificationService NotificationService, log *zap.SugaredLogger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		log:                 log,
	}
}

// GET /api/v1/notifications - Get the parent's notifications, newest first
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	response, err := h.notificationService.ListNotifications(ctx, clerkID, page, pageSize)
	if err != nil {
		respondWithServiceError(w, h.log, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, response)
}

// POST /api/v1/notifications/register-device - Register device token for push notifications
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req notification.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.notificationService.RegisterDevice(ctx, clerkID, &req); err != nil {
		respondWithServiceError(w, h.log, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Device registered successfully"})
}

// POST /api/v1/notifications/test - Test notification (for development)
func (h *NotificationHandler) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if err := h.notificationService.SendTestNotification(ctx, clerkID); err != nil {
		respondWithServiceError(w, h.log, r, err)
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Test notification queued"})
}
