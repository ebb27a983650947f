package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freshiesAPI/internal/activity"
	"freshiesAPI/internal/reminder"
)

type ReminderService interface {
	SuggestTime(ctx context.Context, childID uuid.UUID, segment activity.Segment) (int, error)
	UpsertReminder(ctx context.Context, childID uuid.UUID, segment activity.Segment, timeOfDay *int, enabled bool) (*reminder.Reminder, error)
	ListReminders(ctx context.Context, childID uuid.UUID) ([]*reminder.Reminder, error)
}

type ReminderHandler struct {
	auth      ChildAuthorizer
	reminders ReminderService
	log       *zap.SugaredLogger
}

func NewReminderHandler(auth ChildAuthorizer, reminders ReminderService, log *zap.SugaredLogger) *ReminderHandler {
	return &ReminderHandler{auth: auth, reminders: reminders, log: log}
}

type reminderResponse struct {
	Reminders   []*reminder.Reminder        `json:"reminders"`
	Suggestions map[activity.Segment]string `json:"suggestions"`
}

// GET /api/v1/children/{childID}/reminders
func (h *ReminderHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	childID, ok := childFromRequest(ctx, w, r, h.auth, h.log)
	if !ok {
		return
	}

	list, err := h.reminders.ListReminders(ctx, childID)
	if err != nil {
		respondWithServiceError(w, h.log, r, err)
		return
	}

	suggestions := make(map[activity.Segment]string, len(activity.Segments))
	for _, seg := range activity.Segments {
		minutes, err := h.reminders.SuggestTime(ctx, childID, seg)
		if err != nil {
			respondWithServiceError(w, h.log, r, err)
			return
		}
		suggestions[seg] = reminder.FormatClock(minutes)
	}

	respondWithJSON(w, http.StatusOK, reminderResponse{Reminders: list, Suggestions: suggestions})
}

type upsertReminderRequest struct {
	Segment activity.Segment `json:"segment"`
	Time    *string          `json:"time,omitempty"`
	Enabled *bool            `json:"enabled,omitempty"`
}

// PUT /api/v1/children/{childID}/reminders
// Omitting time uses the suggested time for the segment.
func (h *ReminderHandler) UpsertReminder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	childID, ok := childFromRequest(ctx, w, r, h.auth, h.log)
	if !ok {
		return
	}

	var req upsertReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var timeOfDay *int
	if req.Time != nil {
		minutes, err := reminder.ParseClock(*req.Time)
		if err != nil {
			respondWithServiceError(w, h.log, r, err)
			return
		}
		timeOfDay = &minutes
	}
	enabled := req.Enabled == nil || *req.Enabled

	rem, err := h.reminders.UpsertReminder(ctx, childID, req.Segment, timeOfDay, enabled)
	if err != nil {
		respondWithServiceError(w, h.log, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rem)
}
