// internal/app/features/invite/routes.go
package invite

import (
	"github.com/go-chi/chi/v5"

	"github.com/raaulc/shared-tasks/internal/app/system/auth"
)

// Routes returns the subrouter mounted at /api/invite.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Post("/", h.HandleSend)
	return r
}
