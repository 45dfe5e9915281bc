// internal/app/features/join/routes.go
package join

import "github.com/go-chi/chi/v5"

// Routes returns the subrouter mounted at /join.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	return r
}
