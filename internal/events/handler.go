package events

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/healthpool/riskpool/internal/platform/httpx"
	"github.com/healthpool/riskpool/internal/shared"
)

const maxListLimit = 500

// Handler exposes the audit trail read API.
type Handler struct {
	logger *slog.Logger
	reader Reader
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, reader Reader) *Handler {
	return &Handler{logger: logger, reader: reader}
}

// MountRoutes registers event routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out, err := h.reader.List(r.Context(), f)
	if err != nil {
		h.logger.Error("list events", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"events": out})
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{Type: Type(q.Get("type")), Limit: 100}
	if raw := q.Get("principal"); raw != "" {
		p, err := shared.ParsePrincipal(raw)
		if err != nil {
			return Filter{}, err
		}
		f.Principal = p
	}
	if raw := q.Get("claim_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Filter{}, shared.ErrInvalidInput
		}
		f.ClaimID = id
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Filter{}, shared.ErrInvalidInput
		}
		f.Limit = min(n, maxListLimit)
	}
	return f, nil
}
