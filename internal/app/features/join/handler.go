// internal/app/features/join/handler.go

// Package join serves the invite landing route. A signed-in visitor is
// joined to the workspace immediately; an anonymous visitor has the code
// stashed in the session and is bounced through sign-in, after which the
// auth callback replays the redemption.
package join

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	membershipstore "github.com/raaulc/shared-tasks/internal/app/store/memberships"
	profilestore "github.com/raaulc/shared-tasks/internal/app/store/profiles"
	workspacestore "github.com/raaulc/shared-tasks/internal/app/store/workspaces"
	"github.com/raaulc/shared-tasks/internal/app/system/auth"
	"github.com/raaulc/shared-tasks/internal/app/system/invitecode"
	"github.com/raaulc/shared-tasks/internal/app/system/timeouts"
)

type Handler struct {
	Workspaces  *workspacestore.Store
	Memberships *membershipstore.Store
	Profiles    *profilestore.Store
	SessionMgr  *auth.SessionManager
	Log         *zap.Logger
}

func NewHandler(
	ws *workspacestore.Store,
	ms *membershipstore.Store,
	ps *profilestore.Store,
	sm *auth.SessionManager,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Workspaces:  ws,
		Memberships: ms,
		Profiles:    ps,
		SessionMgr:  sm,
		Log:         logger,
	}
}

// Serve handles GET /join?code=<invite code>.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	code := invitecode.Extract(r.URL.Query().Get("code"))
	if code == "" {
		http.Redirect(w, r, "/?error=invalid_invite", http.StatusSeeOther)
		return
	}

	user, ok := auth.CurrentUser(r)
	if !ok {
		// Deferred redemption: stash the code, sign in, replay.
		if err := h.SessionMgr.StashInviteCode(w, r, code); err != nil {
			h.Log.Error("stash invite code failed", zap.Error(err))
			http.Redirect(w, r, "/?error=internal", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/auth/google", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := Redeem(ctx, h.Workspaces, h.Memberships, h.Profiles, user.ID, code); err != nil {
		if errors.Is(err, workspacestore.ErrNotFound) {
			http.Redirect(w, r, "/?error=invalid_invite", http.StatusSeeOther)
			return
		}
		h.Log.Error("invite redemption failed",
			zap.String("profile_id", user.ID),
			zap.Error(err))
		http.Redirect(w, r, "/?error=internal", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Redeem joins a profile to the workspace behind an invite code and makes
// that workspace active. Redeeming a code for a workspace the profile
// already belongs to is a no-op join that still activates the workspace.
// Returns workspacestore.ErrNotFound for an unknown code.
func Redeem(
	ctx context.Context,
	workspaces *workspacestore.Store,
	memberships *membershipstore.Store,
	profiles *profilestore.Store,
	profileID, code string,
) error {
	ws, err := workspaces.GetByInviteCode(ctx, code)
	if err != nil {
		return err
	}
	if _, err := memberships.Add(ctx, ws.ID, profileID); err != nil &&
		!errors.Is(err, membershipstore.ErrDuplicateMembership) {
		return err
	}
	return profiles.SetActiveWorkspace(ctx, profileID, &ws.ID)
}
