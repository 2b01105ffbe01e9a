package access

import (
	"log/slog"
	"net/http"

	"github.com/healthpool/riskpool/internal/platform/httpx"
	"github.com/healthpool/riskpool/internal/shared"
)

// Middleware gates HTTP routes on role membership of the caller.
type Middleware struct {
	Checker Checker
	Logger  *slog.Logger
}

// RequireRole rejects callers that do not hold role.
func (m Middleware) RequireRole(role shared.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := httpx.Caller(r)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			ok, err := m.Checker.HasRole(r.Context(), role, caller)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("access require role", slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			if !ok {
				httpx.RespondError(w, ErrMissingRole)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
