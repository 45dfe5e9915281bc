// internal/app/features/logout/routes.go
package logout

import "github.com/go-chi/chi/v5"

// Routes returns the subrouter mounted at /logout.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	return r
}
