package access

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/healthpool/riskpool/internal/platform/httpx"
	"github.com/healthpool/riskpool/internal/shared"
)

// Handler exposes the role registry over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	guard    Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		guard:    Middleware{Checker: service, Logger: logger},
	}
}

// MountRoutes registers access routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/grants", h.grant)
	r.Post("/revocations", h.revoke)
	r.Post("/renunciations", h.renounce)
	r.Get("/roles/{role}/admin", h.roleAdmin)
	r.Get("/roles/{role}/members/{principal}", h.hasRole)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(shared.RoleDefaultAdmin))
		r.Get("/roles/{role}/members", h.members)
		r.Put("/roles/{role}/admin", h.setRoleAdmin)
	})
}

type grantRequest struct {
	Role      shared.Role      `json:"role" validate:"required"`
	Principal shared.Principal `json:"principal"`
}

type roleAdminRequest struct {
	AdminRole shared.Role `json:"admin_role" validate:"required"`
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	caller, req, ok := h.decodeGrant(w, r)
	if !ok {
		return
	}
	if err := h.service.GrantRole(r.Context(), caller, req.Role, req.Principal); err != nil {
		h.fail(w, "grant role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	caller, req, ok := h.decodeGrant(w, r)
	if !ok {
		return
	}
	if err := h.service.RevokeRole(r.Context(), caller, req.Role, req.Principal); err != nil {
		h.fail(w, "revoke role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) renounce(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req struct {
		Role shared.Role `json:"role" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RenounceRole(r.Context(), caller, req.Role); err != nil {
		h.fail(w, "renounce role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setRoleAdmin(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req roleAdminRequest
	if err := httpx.DecodeJSON(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	role := shared.Role(chi.URLParam(r, "role"))
	if err := h.service.SetRoleAdmin(r.Context(), caller, role, req.AdminRole); err != nil {
		h.fail(w, "set role admin", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) roleAdmin(w http.ResponseWriter, r *http.Request) {
	role := shared.Role(chi.URLParam(r, "role"))
	admin, err := h.service.RoleAdmin(r.Context(), role)
	if err != nil {
		h.fail(w, "role admin", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role": role, "admin_role": admin})
}

func (h *Handler) hasRole(w http.ResponseWriter, r *http.Request) {
	role := shared.Role(chi.URLParam(r, "role"))
	principal, err := shared.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ok, err := h.service.HasRole(r.Context(), role, principal)
	if err != nil {
		h.fail(w, "has role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role": role, "principal": principal, "granted": ok})
}

func (h *Handler) members(w http.ResponseWriter, r *http.Request) {
	role := shared.Role(chi.URLParam(r, "role"))
	grants, err := h.service.Members(r.Context(), role)
	if err != nil {
		h.fail(w, "list members", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role": role, "members": grants})
}

func (h *Handler) decodeGrant(w http.ResponseWriter, r *http.Request) (shared.Principal, grantRequest, bool) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return shared.Principal{}, grantRequest{}, false
	}
	var req grantRequest
	if err := httpx.DecodeJSON(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return shared.Principal{}, grantRequest{}, false
	}
	return caller, req, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if shared.KindOf(err) == nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
