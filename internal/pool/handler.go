package pool

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/healthpool/riskpool/internal/platform/cache"
	"github.com/healthpool/riskpool/internal/platform/httpx"
	"github.com/healthpool/riskpool/internal/shared"
)

// Handler exposes the pool ledger over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
	cache   *cache.Versioned
}

// NewHandler builds Handler instance. The summary cache may be nil.
func NewHandler(logger *slog.Logger, service *Service, summary *cache.Versioned) *Handler {
	return &Handler{logger: logger, service: service, cache: summary}
}

// MountRoutes registers pool routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/account", h.account)
	r.Get("/payouts/{principal}", h.payouts)
	r.Post("/deposits", h.deposit)
	r.Post("/claims/recorded", h.recordClaim)
	r.Post("/claims/paid", h.payClaim)
}

type amountRequest struct {
	Amount shared.Amount `json:"amount"`
}

type payRequest struct {
	Recipient shared.Principal `json:"recipient"`
	Amount    shared.Amount    `json:"amount"`
}

func (h *Handler) account(w http.ResponseWriter, r *http.Request) {
	out, err := h.cachedAccount(r.Context())
	if err != nil {
		h.fail(w, "pool account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) cachedAccount(ctx context.Context) (Account, error) {
	key, err := h.cache.BuildKey(ctx, "pool", "account")
	if err != nil {
		h.logger.Warn("pool summary cache unavailable", slog.Any("error", err))
		return h.service.Account(ctx)
	}
	var out Account
	err = h.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return h.service.Account(ctx)
	})
	return out, err
}

func (h *Handler) payouts(w http.ResponseWriter, r *http.Request) {
	principal, err := shared.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	total, err := h.service.Payouts(r.Context(), principal)
	if err != nil {
		h.fail(w, "pool payouts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"principal": principal, "credited": total})
}

func (h *Handler) deposit(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req amountRequest
	if err := httpx.DecodeJSON(r, nil, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Deposit(r.Context(), caller, req.Amount); err != nil {
		h.fail(w, "pool deposit", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recordClaim(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req amountRequest
	if err := httpx.DecodeJSON(r, nil, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RecordClaim(r.Context(), caller, req.Amount); err != nil {
		h.fail(w, "pool record claim", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) payClaim(w http.ResponseWriter, r *http.Request) {
	caller, err := httpx.Caller(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req payRequest
	if err := httpx.DecodeJSON(r, nil, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.PayClaim(r.Context(), caller, req.Recipient, req.Amount); err != nil {
		h.fail(w, "pool pay claim", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if shared.KindOf(err) == nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
