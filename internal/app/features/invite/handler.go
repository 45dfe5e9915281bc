// internal/app/features/invite/handler.go

// Package invite serves the invite email endpoint. Delivery failures are
// reported to the caller and never retried automatically.
package invite

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	membershipstore "github.com/raaulc/shared-tasks/internal/app/store/memberships"
	profilestore "github.com/raaulc/shared-tasks/internal/app/store/profiles"
	workspacestore "github.com/raaulc/shared-tasks/internal/app/store/workspaces"
	"github.com/raaulc/shared-tasks/internal/app/system/auth"
	"github.com/raaulc/shared-tasks/internal/app/system/invitecode"
	"github.com/raaulc/shared-tasks/internal/app/system/ratelimit"
	"github.com/raaulc/shared-tasks/internal/app/system/timeouts"
)

// Sender delivers one invite email.
type Sender interface {
	SendInvite(recipient, inviteLink, workspaceName string) error
}

type Handler struct {
	Workspaces  *workspacestore.Store
	Memberships *membershipstore.Store
	Profiles    *profilestore.Store
	Sender      Sender
	Limiter     *ratelimit.InviteLimiter
	BaseURL     string
	Log         *zap.Logger
}

func NewHandler(
	ws *workspacestore.Store,
	ms *membershipstore.Store,
	ps *profilestore.Store,
	sender Sender,
	baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Workspaces:  ws,
		Memberships: ms,
		Profiles:    ps,
		Sender:      sender,
		Limiter:     ratelimit.NewInviteLimiter(),
		BaseURL:     baseURL,
		Log:         logger,
	}
}

type inviteRequest struct {
	Email string `json:"email"`
}

type inviteResponse struct {
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// HandleSend handles POST /api/invite. The invite always targets the
// caller's active workspace; membership is re-checked against the store
// rather than trusted from the session.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, inviteResponse{Error: "sign-in required"})
		return
	}

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, inviteResponse{Error: "invalid request body"})
		return
	}
	recipient := strings.TrimSpace(req.Email)
	if _, err := mail.ParseAddress(recipient); err != nil {
		writeJSON(w, http.StatusBadRequest, inviteResponse{Error: "invalid email address"})
		return
	}

	if h.Sender == nil {
		writeJSON(w, http.StatusServiceUnavailable, inviteResponse{Error: "mail delivery is not configured"})
		return
	}

	if h.Limiter != nil {
		if allowed, reason := h.Limiter.Check(r, recipient); !allowed {
			writeJSON(w, http.StatusTooManyRequests, inviteResponse{Error: reason})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	profile, err := h.Profiles.Get(ctx, user.ID)
	if err != nil {
		h.Log.Error("load profile failed", zap.String("profile_id", user.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, inviteResponse{Error: "internal error"})
		return
	}
	if profile.ActiveWorkspaceID == nil {
		writeJSON(w, http.StatusConflict, inviteResponse{Error: "no active workspace"})
		return
	}

	member, err := h.Memberships.Exists(ctx, *profile.ActiveWorkspaceID, profile.ID)
	if err != nil {
		h.Log.Error("membership check failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, inviteResponse{Error: "internal error"})
		return
	}
	if !member {
		writeJSON(w, http.StatusForbidden, inviteResponse{Error: "not a member of the active workspace"})
		return
	}

	ws, err := h.Workspaces.GetByID(ctx, *profile.ActiveWorkspaceID)
	if err != nil {
		h.Log.Error("load workspace failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, inviteResponse{Error: "internal error"})
		return
	}

	link := invitecode.Link(h.BaseURL, ws.InviteCode)
	if err := h.Sender.SendInvite(recipient, link, ws.Name); err != nil {
		h.Log.Error("invite delivery failed",
			zap.String("workspace_id", ws.ID.Hex()),
			zap.Error(err))
		writeJSON(w, http.StatusBadGateway, inviteResponse{Error: "delivery failed"})
		return
	}

	h.Log.Info("invite sent",
		zap.String("workspace_id", ws.ID.Hex()),
		zap.String("profile_id", profile.ID))
	writeJSON(w, http.StatusOK, inviteResponse{Status: "sent"})
}

func writeJSON(w http.ResponseWriter, status int, body inviteResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
