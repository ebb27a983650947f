package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freshiesAPI/internal/achievement"
)

type AchievementService interface {
	EvaluateAndUnlock(ctx context.Context, childID uuid.UUID) []*achievement.Achievement
	GetAchievementsWithProgress(ctx context.Context, childID uuid.UUID) ([]*achievement.WithProgress, error)
}

type AchievementHandler struct {
	auth         ChildAuthorizer
	achievements AchievementService
	log          *zap.SugaredLogger
}

func NewAchievementHandler(auth ChildAuthorizer, achievements AchievementService, log *zap.SugaredLogger) *AchievementHandler {
	return &AchievementHandler{auth: auth, achievements: achievements, log: log}
}

// GET /api/v1/children/{childID}/achievements
func (h *AchievementHandler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	childID, ok := childFromRequest(ctx, w, r, h.auth, h.log)
	if !ok {
		return
	}

	list, err := h.achievements.GetAchievementsWithProgress(ctx, childID)
	if err != nil {
		respondWithServiceError(w, h.log, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// POST /api/v1/children/{childID}/achievements/evaluate
// Re-runs the unlock pass, e.g. after the app was offline.
func (h *AchievementHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	childID, ok := childFromRequest(ctx, w, r, h.auth, h.log)
	if !ok {
		return
	}

	unlocked := h.achievements.EvaluateAndUnlock(ctx, childID)
	if unlocked == nil {
		unlocked = []*achievement.Achievement{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"unlocked": unlocked,
	})
}
