package pool

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthpool/riskpool/internal/platform/cache"
	"github.com/healthpool/riskpool/internal/shared"
)

func request(r http.Handler, method, path, body string, caller shared.Principal) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if !caller.IsZero() {
		req = req.WithContext(shared.ContextWithCaller(req.Context(), caller))
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestHandlerAccountCacheInvalidatedOnChange(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	f := newFixture(t, 5, nil)
	summary := cache.NewVersioned(client, "pool", time.Minute)
	f.service.OnChange(func(ctx context.Context) { _ = summary.Bump(ctx) })

	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), f.service, summary).MountRoutes(r)

	rr := request(r, http.MethodPost, "/deposits", `{"amount":"1000"}`, depositor)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = request(r, http.MethodGet, "/account", "", shared.ZeroPrincipal)
	require.Equal(t, http.StatusOK, rr.Code)
	var acct Account
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &acct))
	assert.Equal(t, shared.Amount(950), acct.CurrentBalance)

	rr = request(r, http.MethodPost, "/claims/paid", `{"recipient":"`+patient.String()+`","amount":"200"}`, manager)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = request(r, http.MethodGet, "/account", "", shared.ZeroPrincipal)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &acct))
	assert.Equal(t, shared.Amount(750), acct.CurrentBalance)
	assert.Equal(t, shared.Amount(200), acct.TotalClaimsPaid)

	rr = request(r, http.MethodGet, "/payouts/"+patient.String(), "", shared.ZeroPrincipal)
	assert.Contains(t, rr.Body.String(), `"credited":"200"`)
}

func TestHandlerErrors(t *testing.T) {
	f := newFixture(t, 0, nil)
	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), f.service, nil).MountRoutes(r)

	rr := request(r, http.MethodPost, "/deposits", `{"amount":"0"}`, depositor)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "ZeroValue")

	rr = request(r, http.MethodPost, "/deposits", `{"amount":"10"}`, shared.ZeroPrincipal)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = request(r, http.MethodPost, "/claims/recorded", `{"amount":"10"}`, depositor)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = request(r, http.MethodPost, "/claims/recorded", `{"amount":"10"}`, manager)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "InsufficientFunds")
}
