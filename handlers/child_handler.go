package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freshiesAPI/internal/account"
	"freshiesAPI/internal/activity"
	"freshiesAPI/internal/points"
	"freshiesAPI/middleware"
	"freshiesAPI/services"
)

type AccountService interface {
	ChildAuthorizer
	AddChild(ctx context.Context, clerkID string, req *account.CreateChildRequest) (*account.Child, error)
	ListChildren(ctx context.Context, clerkID string) ([]*account.Child, error)
}

type RoutineService interface {
	RecordCompletion(ctx context.Context, childID uuid.UUID, segment activity.Segment, completedAt time.Time) (*services.CompletionResult, error)
	GetSnapshot(ctx context.Context, childID uuid.UUID) (*services.RoutineSummary, error)
}

type LedgerService interface {
	GetLedger(ctx context.Context, childID uuid.UUID) (*points.Ledger, error)
}

type ChildHandler struct {
	accounts AccountService
	routines RoutineService
	ledger   LedgerService
	log      *zap.SugaredLogger
}

func NewChildHandler(accounts AccountService, routines RoutineService, ledger LedgerService, log *zap.SugaredLogger) *ChildHandler {
	return &ChildHandler{accounts: accounts, routines: routines, ledger: ledger, log: log}
}

// GET /api/v1/children
func (h *ChildHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	children, err := h.accounts.ListChildren(ctx, clerkID)
	if err != nil {
		respondWithServiceError(w, h.log, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, children)
}

// POST /api/v1/children
func (h *ChildHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req account.CreateChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	child, err := h.accounts.AddChild(ctx, clerkID, &req)
	if err != nil {
		respondWithServiceError(w, h.log, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, child)
}

type completionRequest struct {
	Segment     activity.Segment `json:"segment"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// POST /api/v1/children/{childID}/completions
func (h *ChildHandler) RecordCompletion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	childID, ok := childFromRequest(ctx, w, r, h.accounts, h.log)
	if !ok {
		return
	}

	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var completedAt time.Time
	if req.CompletedAt != nil {
		completedAt = *req.CompletedAt
	}

	res, err := h.routines.RecordCompletion(ctx, childID, req.Segment, completedAt)
	if err != nil {
		respondWithServiceError(w, h.log, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, res)
}

// GET /api/v1/children/{childID}/snapshot
func (h *ChildHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	childID, ok := childFromRequest(ctx, w, r, h.accounts, h.log)
	if !ok {
		return
	}

	summary, err := h.routines.GetSnapshot(ctx, childID)
	if err != nil {
		respondWithServiceError(w, h.log, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

// GET /api/v1/children/{childID}/points
func (h *ChildHandler) GetPoints(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	childID, ok := childFromRequest(ctx, w, r, h.accounts, h.log)
	if !ok {
		return
	}

	ledger, err := h.ledger.GetLedger(ctx, childID)
	if err != nil {
		respondWithServiceError(w, h.log, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ledger)
}
