package claims

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/healthpool/riskpool/internal/access"
	"github.com/healthpool/riskpool/internal/platform/httpx"
	"github.com/healthpool/riskpool/internal/shared"
)

const claimsPageLimit = 100

// Handler exposes the claims ledger over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	guard    access.Middleware
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, checker access.Checker) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		guard:    access.Middleware{Checker: checker, Logger: logger},
		validate: validator.New(),
	}
}

// MountRoutes registers claims routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.submit)
	r.Get("/{id}", h.get)
	r.Post("/{id}/approval", h.approve)
	r.Post("/{id}/rejection", h.reject)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(shared.RoleClaimManager))
		r.Post("/{id}/disbursement", h.disburse)
	})
}

type submitRequest struct {
	Amount        shared.Amount `json:"amount"`
	TreatmentType TreatmentType `json:"treatment_type" validate:"required"`
	PatientCode   string        `json:"patient_code" validate:"required,max=128"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req submitRequest
	if err := httpx.DecodeJSON(r, h.validate, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.SubmitClaim(r.Context(), caller, req.Amount, req.TreatmentType, req.PatientCode)
	if err != nil {
		h.fail(w, "submit claim", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{Status: Status(q.Get("status")), Limit: claimsPageLimit}
	if raw := q.Get("participant"); raw != "" {
		p, err := shared.ParsePrincipal(raw)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		f.Participant = p
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.RespondError(w, shared.ErrInvalidInput)
			return
		}
		f.Limit = min(n, claimsPageLimit)
	}
	out, err := h.service.ListClaims(r.Context(), f)
	if err != nil {
		h.fail(w, "list claims", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"claims": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := claimID(w, r)
	if !ok {
		return
	}
	c, err := h.service.GetClaim(r.Context(), id)
	if err != nil {
		h.fail(w, "get claim", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, ok := claimID(w, r)
	if !ok {
		return
	}
	c, err := h.service.ApproveClaim(r.Context(), caller, id)
	if err != nil {
		h.fail(w, "approve claim", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, ok := claimID(w, r)
	if !ok {
		return
	}
	c, err := h.service.RejectClaim(r.Context(), caller, id)
	if err != nil {
		h.fail(w, "reject claim", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) disburse(w http.ResponseWriter, r *http.Request) {
	id, ok := claimID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Disburse(r.Context(), id)
	if err != nil {
		h.fail(w, "disburse claim", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func claimID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, ErrClaimNotFound)
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if shared.KindOf(err) == nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
