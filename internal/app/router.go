package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helios-crm/helios-crm/internal/auth"
	"github.com/helios-crm/helios-crm/internal/authz"
	"github.com/helios-crm/helios-crm/internal/deals"
	"github.com/helios-crm/helios-crm/internal/leads"
	"github.com/helios-crm/helios-crm/internal/roles"
	"github.com/helios-crm/helios-crm/internal/shared"
	"github.com/helios-crm/helios-crm/internal/users"
	"github.com/helios-crm/helios-crm/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Gate           authz.Middleware
	AuthHandler    *auth.Handler
	UsersHandler   *users.Handler
	RolesHandler   *roles.Handler
	LeadsHandler   *leads.Handler
	DealsHandler   *deals.Handler
	JobsHandler    *jobs.Handler
}

// NewRouter constructs the chi.Router with Helios defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		params.AuthHandler.MountRoutes(api)
		params.UsersHandler.MountRoutes(api, params.Gate)
		params.RolesHandler.MountRoutes(api, params.Gate)
		params.LeadsHandler.MountRoutes(api, params.Gate)
		params.DealsHandler.MountRoutes(api, params.Gate)
		if params.JobsHandler != nil {
			api.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
