// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/raaulc/shared-tasks/internal/app/system/auth"
)

type Handler struct {
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{SessionMgr: sessionMgr, Log: logger}
}

// Serve handles GET /logout. It clears the session cookie and sends the
// user home. Signing out an already-anonymous request is a no-op.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("sign-out failed", zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
