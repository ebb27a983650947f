package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"freshiesAPI/internal/account"
	"freshiesAPI/internal/achievement"
	"freshiesAPI/internal/activity"
	"freshiesAPI/internal/notification"
	"freshiesAPI/internal/observability"
	"freshiesAPI/internal/photo"
	"freshiesAPI/internal/points"
	"freshiesAPI/internal/reminder"
	"freshiesAPI/middleware"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, account.ErrChildNotOwned):
		return http.StatusForbidden
	case errors.Is(err, account.ErrChildNotFound),
		errors.Is(err, account.ErrParentNotFound):
		return http.StatusNotFound
	case errors.Is(err, activity.ErrInvalidSegment),
		errors.Is(err, activity.ErrFutureCompletion),
		errors.Is(err, achievement.ErrInvalidRequirement),
		errors.Is(err, points.ErrInvalidAmount),
		errors.Is(err, account.ErrInvalidChild),
		errors.Is(err, reminder.ErrInvalidTime),
		errors.Is(err, photo.ErrInvalidTag),
		errors.Is(err, photo.ErrInvalidURL),
		errors.Is(err, notification.ErrInvalidDevice):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondWithServiceError hides internal errors from the client and reports
// them instead.
func respondWithServiceError(w http.ResponseWriter, log *zap.SugaredLogger, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		observability.CaptureErr(err)
		respondWithError(w, code, "Internal server error")
		return
	}
	respondWithError(w, code, err.Error())
}

type ChildAuthorizer interface {
	AuthorizeChild(ctx context.Context, clerkID string, childID uuid.UUID) (*account.Child, error)
}

// childFromRequest resolves {childID} and checks it belongs to the caller.
// It writes the error response itself and reports false on failure.
func childFromRequest(ctx context.Context, w http.ResponseWriter, r *http.Request, auth ChildAuthorizer, log *zap.SugaredLogger) (uuid.UUID, bool) {
	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return uuid.Nil, false
	}

	childID, err := uuid.Parse(mux.Vars(r)["childID"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid child ID")
		return uuid.Nil, false
	}

	if _, err := auth.AuthorizeChild(ctx, clerkID, childID); err != nil {
		respondWithServiceError(w, log, r, err)
		return uuid.Nil, false
	}
	return childID, true
}
