package httpx

import (
	"net/http"

	"github.com/healthpool/riskpool/internal/shared"
)

// Caller returns the authenticated principal attached to the request.
func Caller(r *http.Request) (shared.Principal, error) {
	p, ok := shared.CallerFromContext(r.Context())
	if !ok {
		return shared.Principal{}, ErrUnauthenticated
	}
	return p, nil
}
