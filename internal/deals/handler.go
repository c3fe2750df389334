package deals

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/helios-crm/helios-crm/internal/authz"
	"github.com/helios-crm/helios-crm/internal/platform/httpx"
	"github.com/helios-crm/helios-crm/internal/shared"
)

// Handler exposes the deal JSON API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers deal routes with their required permissions.
func (h *Handler) MountRoutes(r chi.Router, gate authz.Middleware) {
	r.Route("/deals", func(r chi.Router) {
		r.With(gate.RequireAny("deal:read")).Get("/", h.list)
		r.With(gate.RequireAny("deal:read:own")).Get("/{id}", h.get)
		r.With(gate.RequireAny("deal:create")).Post("/", h.create)
		r.With(gate.RequireAny("deal:update:own")).Patch("/{id}", h.update)
		r.With(gate.RequireAny("deal:delete:own")).Delete("/{id}", h.remove)
		r.With(gate.RequireAll("deal:create", "lead:update")).Post("/convert/{id}", h.convert)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	req := shared.PageRequest{
		Page:      page,
		Limit:     limit,
		Search:    r.URL.Query().Get("search"),
		SortBy:    r.URL.Query().Get("sort"),
		SortOrder: r.URL.Query().Get("dir"),
	}
	result, err := h.service.FindAll(r.Context(), principalID, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	principalID, id, err := requestIDs(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	deal, err := h.service.FindOne(r.Context(), id, principalID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, deal)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var input CreateDealInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	deal, err := h.service.Create(r.Context(), input, principalID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, deal)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	principalID, id, err := requestIDs(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input UpdateDealInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	deal, err := h.service.Update(r.Context(), id, input, principalID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, deal)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	principalID, id, err := requestIDs(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Remove(r.Context(), id, principalID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	principalID, leadID, err := requestIDs(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input ConvertLeadInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	deal, err := h.service.ConvertLead(r.Context(), leadID, input, principalID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, deal)
}

func requestIDs(r *http.Request) (principalID, entityID int64, err error) {
	principalID, ok := shared.PrincipalIDFromContext(r.Context())
	if !ok {
		return 0, 0, shared.ErrUnauthorized
	}
	entityID, parseErr := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if parseErr != nil || entityID <= 0 {
		return 0, 0, shared.ErrNotFound
	}
	return principalID, entityID, nil
}
