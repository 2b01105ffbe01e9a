package membership

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/healthpool/riskpool/internal/platform/httpx"
	"github.com/healthpool/riskpool/internal/shared"
)

// Handler exposes membership endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers membership routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/fees", h.listFees)
	r.Put("/fees/{tier}", h.setFee)
	r.Get("/treasury", h.treasury)

	r.Get("/participants", h.listParticipants)
	r.Post("/participants", h.registerParticipant)
	r.Get("/participants/{principal}", h.getParticipant)
	r.Post("/payments", h.pay)

	r.Post("/providers", h.registerProvider)
	r.Get("/providers/{principal}", h.getProvider)
	r.Post("/providers/{principal}/approval", h.approveProvider)
	r.Post("/providers/{principal}/rejection", h.rejectProvider)
}

type feeRequest struct {
	Amount shared.Amount `json:"amount"`
}

type registerRequest struct {
	Tier    Tier          `json:"tier"`
	Payment shared.Amount `json:"payment"`
}

type paymentRequest struct {
	Payment shared.Amount `json:"payment"`
}

type participantView struct {
	Participant
	Active bool `json:"active"`
}

func (h *Handler) listFees(w http.ResponseWriter, r *http.Request) {
	fees, err := h.service.ListFees(r.Context())
	if err != nil {
		h.fail(w, "list fees", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"fees": fees})
}

func (h *Handler) setFee(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req feeRequest
	if err := httpx.DecodeJSON(r, nil, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	tier := Tier(chi.URLParam(r, "tier"))
	if err := h.service.SetMonthlyFee(r.Context(), caller, tier, req.Amount); err != nil {
		h.fail(w, "set monthly fee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) treasury(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.TreasuryTotal(r.Context())
	if err != nil {
		h.fail(w, "treasury total", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"routing": h.service.Config().Routing, "collected": total})
}

func (h *Handler) listParticipants(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.ListParticipants(r.Context())
	if err != nil {
		h.fail(w, "list participants", err)
		return
	}
	out := make([]participantView, 0, len(all))
	for _, p := range all {
		out = append(out, h.view(r, p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"participants": out})
}

func (h *Handler) registerParticipant(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req registerRequest
	if err := httpx.DecodeJSON(r, nil, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.RegisterParticipant(r.Context(), caller, req.Tier, req.Payment)
	if err != nil {
		h.fail(w, "register participant", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.view(r, p))
}

func (h *Handler) getParticipant(w http.ResponseWriter, r *http.Request) {
	principal, err := shared.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.GetParticipant(r.Context(), principal)
	if err != nil {
		h.fail(w, "get participant", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(r, p))
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req paymentRequest
	if err := httpx.DecodeJSON(r, nil, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.PayMonthlyFee(r.Context(), caller, req.Payment)
	if err != nil {
		h.fail(w, "pay monthly fee", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(r, p))
}

func (h *Handler) registerProvider(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.RegisterHealthcareProvider(r.Context(), caller)
	if err != nil {
		h.fail(w, "register provider", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) getProvider(w http.ResponseWriter, r *http.Request) {
	principal, err := shared.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.GetProvider(r.Context(), principal)
	if err != nil {
		h.fail(w, "get provider", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) approveProvider(w http.ResponseWriter, r *http.Request) {
	h.decideProvider(w, r, h.service.ApproveHealthcareProvider)
}

func (h *Handler) rejectProvider(w http.ResponseWriter, r *http.Request) {
	h.decideProvider(w, r, h.service.RejectHealthcareProvider)
}

func (h *Handler) decideProvider(w http.ResponseWriter, r *http.Request, decide func(context.Context, shared.Principal, shared.Principal) (Provider, error)) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, err := shared.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := decide(r.Context(), caller, principal)
	if err != nil {
		h.fail(w, "decide provider", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) view(r *http.Request, p Participant) participantView {
	active, err := h.service.IsActiveParticipant(r.Context(), p.Principal)
	if err != nil {
		h.logger.Warn("participant activity", slog.Any("error", err))
	}
	return participantView{Participant: p, Active: active}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if shared.KindOf(err) == nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
