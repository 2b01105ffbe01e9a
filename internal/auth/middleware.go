package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/healthpool/riskpool/internal/platform/httpx"
	"github.com/healthpool/riskpool/internal/shared"
)

// Middleware attaches the bearer token's principal to the request context.
// Requests without an Authorization header pass through anonymously.
func Middleware(svc *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "invalid authorization format", "Unauthenticated")
				return
			}
			principal, err := svc.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				if logger != nil {
					logger.Debug("auth reject token", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "invalid token", "Unauthenticated")
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithCaller(r.Context(), principal)))
		})
	}
}
