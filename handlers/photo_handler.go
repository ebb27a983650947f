package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freshiesAPI/internal/photo"
)

type PhotoService interface {
	AddPhoto(ctx context.Context, childID uuid.UUID, tag photo.Tag, rawURL string, takenAt time.Time) (*photo.Photo, error)
	ListPairs(ctx context.Context, childID uuid.UUID) ([]photo.Pair, error)
}

type PhotoHandler struct {
	auth   ChildAuthorizer
	photos PhotoService
	log    *zap.SugaredLogger
}

func NewPhotoHandler(auth ChildAuthorizer, photos PhotoService, log *zap.SugaredLogger) *PhotoHandler {
	return &PhotoHandler{auth: auth, photos: photos, log: log}
}

type addPhotoRequest struct {
	Tag     photo.Tag  `json:"tag"`
	URL     string     `json:"url"`
	TakenAt *time.Time `json:"taken_at,omitempty"`
}

// POST /api/v1/children/{childID}/photos
func (h *PhotoHandler) AddPhoto(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	childID, ok := childFromRequest(ctx, w, r, h.auth, h.log)
	if !ok {
		return
	}

	var req addPhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var takenAt time.Time
	if req.TakenAt != nil {
		takenAt = *req.TakenAt
	}

	p, err := h.photos.AddPhoto(ctx, childID, req.Tag, req.URL, takenAt)
	if err != nil {
		respondWithServiceError(w, h.log, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, p)
}

// GET /api/v1/children/{childID}/photos/pairs
func (h *PhotoHandler) ListPairs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	childID, ok := childFromRequest(ctx, w, r, h.auth, h.log)
	if !ok {
		return
	}

	pairs, err := h.photos.ListPairs(ctx, childID)
	if err != nil {
		respondWithServiceError(w, h.log, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, pairs)
}
