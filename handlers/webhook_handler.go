package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"freshiesAPI/internal/account"
)

// Clerk signs webhooks with svix: "whsec_<base64 key>" and a space separated
// list of "v1,<base64 sig>" entries over "<id>.<timestamp>.<body>".
const webhookTolerance = 5 * time.Minute

var errInvalidSignature = errors.New("invalid webhook signature")

type ParentAccounts interface {
	CreateParent(ctx context.Context, clerkID, email, displayName string) (*account.Parent, error)
	DeleteParent(ctx context.Context, clerkID string) error
}

type WebhookHandler struct {
	accounts ParentAccounts
	secret   string
	now      func() time.Time
	log      *zap.SugaredLogger
}

func NewWebhookHandler(accounts ParentAccounts, secret string, log *zap.SugaredLogger) *WebhookHandler {
	return &WebhookHandler{accounts: accounts, secret: secret, now: time.Now, log: log}
}

type clerkEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type clerkUser struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	PrimaryEmailID string `json:"primary_email_address_id"`
	EmailAddresses []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

func (u *clerkUser) email() string {
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailID {
			return e.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

func (u *clerkUser) displayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}

// POST /webhooks/clerk
func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Error reading body")
		return
	}

	if err := h.verify(r.Header, body); err != nil {
		h.log.Warnw("rejected clerk webhook", "error", err)
		respondWithError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event clerkEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondWithError(w, http.StatusBadRequest, "Error parsing webhook")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	switch event.Type {
	case "user.created", "user.updated":
		var u clerkUser
		if err := json.Unmarshal(event.Data, &u); err != nil {
			respondWithError(w, http.StatusBadRequest, "Error parsing user data")
			return
		}
		if _, err := h.accounts.CreateParent(ctx, u.ID, u.email(), u.displayName()); err != nil {
			respondWithServiceError(w, h.log, r, fmt.Errorf("failed to sync parent %s: %w", u.ID, err))
			return
		}
		h.log.Infow("parent synced", "clerk_id", u.ID, "event", event.Type)

	case "user.deleted":
		var u struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Data, &u); err != nil {
			respondWithError(w, http.StatusBadRequest, "Error parsing user data")
			return
		}
		if err := h.accounts.DeleteParent(ctx, u.ID); err != nil {
			respondWithServiceError(w, h.log, r, fmt.Errorf("failed to delete parent %s: %w", u.ID, err))
			return
		}
		h.log.Infow("parent deleted", "clerk_id", u.ID)

	default:
		h.log.Debugw("unhandled webhook event", "type", event.Type)
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *WebhookHandler) verify(header http.Header, body []byte) error {
	if h.secret == "" {
		return fmt.Errorf("%w: webhook secret not configured", errInvalidSignature)
	}

	id := header.Get("svix-id")
	ts := header.Get("svix-timestamp")
	sigs := header.Get("svix-signature")
	if id == "" || ts == "" || sigs == "" {
		return fmt.Errorf("%w: missing svix headers", errInvalidSignature)
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", errInvalidSignature)
	}
	sent := time.Unix(sec, 0)
	if d := h.now().Sub(sent); d > webhookTolerance || d < -webhookTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", errInvalidSignature)
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(h.secret, "whsec_"))
	if err != nil {
		return fmt.Errorf("%w: bad secret encoding", errInvalidSignature)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id + "." + ts + "."))
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, entry := range strings.Fields(sigs) {
		version, sig, ok := strings.Cut(entry, ",")
		if !ok || version != "v1" {
			continue
		}
		got, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, got) {
			return nil
		}
	}
	return errInvalidSignature
}
