package leads

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/helios-crm/helios-crm/internal/platform/httpx"
	"github.com/helios-crm/helios-crm/internal/shared"
)

// Handler exposes the lead JSON API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
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
	lead, err := h.service.FindOne(r.Context(), id, principalID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lead)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var input CreateLeadInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lead, err := h.service.Create(r.Context(), input, principalID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lead)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	principalID, id, err := requestIDs(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input UpdateLeadInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lead, err := h.service.Update(r.Context(), id, input, principalID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lead)
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

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	principalID, id, err := requestIDs(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input AssignLeadInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Assign(r.Context(), id, input.AssignedTo, principalID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unassign(w http.ResponseWriter, r *http.Request) {
	principalID, id, err := requestIDs(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Unassign(r.Context(), id, principalID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requestIDs extracts the acting principal and the addressed entity id.
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
