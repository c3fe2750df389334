package leads

import (
	"github.com/go-chi/chi/v5"

	"github.com/helios-crm/helios-crm/internal/authz"
)

// MountRoutes registers lead routes with their required permissions.
func (h *Handler) MountRoutes(r chi.Router, gate authz.Middleware) {
	r.Route("/leads", func(r chi.Router) {
		r.With(gate.RequireAny("lead:read")).Get("/", h.list)
		r.With(gate.RequireAny("lead:read:own")).Get("/{id}", h.get)
		r.With(gate.RequireAny("lead:create")).Post("/", h.create)
		r.With(gate.RequireAny("lead:update:own")).Patch("/{id}", h.update)
		r.With(gate.RequireAny("lead:delete:own")).Delete("/{id}", h.remove)
		r.With(gate.RequireAny("lead:assign")).Post("/{id}/assign", h.assign)
		r.With(gate.RequireAny("lead:unassign")).Post("/{id}/unassign", h.unassign)
	})
}
