package access

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthpool/riskpool/internal/events"
	"github.com/healthpool/riskpool/internal/platform/txn"
	"github.com/healthpool/riskpool/internal/shared"
)

func newTestRouter(t *testing.T) (chi.Router, *Service) {
	t.Helper()
	svc := NewService(NewMemoryRepository(), txn.NewMemory(), events.Discard)
	require.NoError(t, svc.Bootstrap(context.Background(), deployer))
	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes(r)
	return r, svc
}

func do(r http.Handler, method, path, body string, caller shared.Principal) *httptest.ResponseRecorder {
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

func TestHandlerGrantFlow(t *testing.T) {
	r, svc := newTestRouter(t)
	body := `{"role":"HOSPITAL","principal":"` + hospital.String() + `"}`

	rr := do(r, http.MethodPost, "/grants", body, shared.ZeroPrincipal)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(r, http.MethodPost, "/grants", body, stranger)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "MissingRole")

	rr = do(r, http.MethodPost, "/grants", body, deployer)
	require.Equal(t, http.StatusNoContent, rr.Code)
	ok, err := svc.HasRole(context.Background(), shared.RoleHospital, hospital)
	require.NoError(t, err)
	assert.True(t, ok)

	rr = do(r, http.MethodGet, "/roles/HOSPITAL/members/"+hospital.String(), "", shared.ZeroPrincipal)
	require.Equal(t, http.StatusOK, rr.Code)
	var out struct {
		Granted bool `json:"granted"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.True(t, out.Granted)

	rr = do(r, http.MethodPost, "/revocations", body, deployer)
	require.Equal(t, http.StatusNoContent, rr.Code)
	ok, err = svc.HasRole(context.Background(), shared.RoleHospital, hospital)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHandlerRejectsUnknownRole(t *testing.T) {
	r, _ := newTestRouter(t)
	rr := do(r, http.MethodPost, "/grants", `{"role":"AUDITOR","principal":"`+hospital.String()+`"}`, deployer)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "InvalidRole")
}

func TestHandlerMembersRequiresSuperAdmin(t *testing.T) {
	r, _ := newTestRouter(t)
	rr := do(r, http.MethodGet, "/roles/DEFAULT_ADMIN/members", "", stranger)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(r, http.MethodGet, "/roles/DEFAULT_ADMIN/members", "", deployer)
	require.Equal(t, http.StatusOK, rr.Code)
	var out struct {
		Members []Grant `json:"members"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out.Members, 1)
	assert.Equal(t, deployer, out.Members[0].Principal)

	rr = do(r, http.MethodPut, "/roles/HOSPITAL/admin", `{"admin_role":"ADMIN"}`, deployer)
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(r, http.MethodGet, "/roles/HOSPITAL/admin", "", shared.ZeroPrincipal)
	assert.Contains(t, rr.Body.String(), `"admin_role":"ADMIN"`)
}
