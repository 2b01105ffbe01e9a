package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/healthpool/riskpool/internal/claims"
	"github.com/healthpool/riskpool/internal/events"
	"github.com/healthpool/riskpool/internal/membership"
	"github.com/healthpool/riskpool/internal/platform/httpx"
	"github.com/healthpool/riskpool/internal/pool"
	"github.com/healthpool/riskpool/internal/shared"
)

var (
	deployer    = shared.MustPrincipal(deployerHex)
	provider    = shared.MustPrincipal(providerHex)
	member      = shared.MustPrincipal("0x4000000000000000000000000000000000000004")
	outsider    = shared.MustPrincipal("0x5000000000000000000000000000000000000005")
	benefactor  = shared.MustPrincipal("0x6000000000000000000000000000000000000006")
	scenarioT0  = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type ScenarioSuite struct {
	suite.Suite
	clock *testClock
	sink  *events.MemorySink
	app   *App
	http  http.Handler
}

func TestScenarioSuite(t *testing.T) {
	suite.Run(t, new(ScenarioSuite))
}

func (s *ScenarioSuite) SetupTest() {
	cfg := validConfig()
	cfg.PoolAdminFeePercent = 5
	cfg.FeeBasic = 100
	cfg.FeePremium = 300
	cfg.InitialProviders = []string{providerHex}
	cfg.RateLimitPerMin = 10000
	cfg.EventSinks = nil
	require.NoError(s.T(), cfg.Validate())

	s.clock = &testClock{now: scenarioT0}
	s.sink = events.NewMemorySink()
	a, err := Build(context.Background(), &cfg, quietLogger, WithClock(s.clock.Now), WithSinks(s.sink))
	require.NoError(s.T(), err)
	s.T().Cleanup(func() { _ = a.Close() })
	s.app = a
	s.http = a.Handler(nil)
}

func (s *ScenarioSuite) do(method, path string, body any, caller shared.Principal) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if !caller.IsZero() {
		token, err := s.app.Auth.Issue(caller, time.Hour)
		require.NoError(s.T(), err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.http.ServeHTTP(rr, req)
	return rr
}

func (s *ScenarioSuite) decode(rr *httptest.ResponseRecorder, v any) {
	require.NoError(s.T(), json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func (s *ScenarioSuite) reason(rr *httptest.ResponseRecorder) string {
	var p httpx.ProblemDetail
	s.decode(rr, &p)
	return p.Reason
}

func (s *ScenarioSuite) registerMember() {
	rr := s.do(http.MethodPost, "/v1/membership/participants", map[string]any{"tier": "BASIC", "payment": "100"}, member)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
}

func (s *ScenarioSuite) approveProvider() {
	rr := s.do(http.MethodPost, "/v1/membership/providers", nil, provider)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	rr = s.do(http.MethodPost, "/v1/membership/providers/"+provider.String()+"/approval", nil, deployer)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
}

func (s *ScenarioSuite) account() pool.Account {
	rr := s.do(http.MethodGet, "/v1/pool/account", nil, shared.Principal{})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	var acct pool.Account
	s.decode(rr, &acct)
	return acct
}

func (s *ScenarioSuite) TestSeededState() {
	ctx := context.Background()
	for _, check := range []struct {
		role shared.Role
		who  shared.Principal
	}{
		{shared.RoleDefaultAdmin, deployer},
		{shared.RoleAdmin, deployer},
		{shared.RoleClaimManager, s.app.Config.Claims()},
		{shared.RoleHospital, provider},
	} {
		ok, err := s.app.Access.HasRole(ctx, check.role, check.who)
		s.Require().NoError(err)
		s.True(ok, "%s should hold %s", check.who, check.role)
	}
	fee, err := s.app.Membership.MonthlyFee(ctx, membership.TierBasic)
	s.Require().NoError(err)
	s.Equal(shared.Amount(100), fee)
	_, err = s.app.Membership.MonthlyFee(ctx, membership.TierStandard)
	s.ErrorIs(err, membership.ErrInvalidTier)

	rr := s.do(http.MethodGet, "/healthz", nil, shared.Principal{})
	s.Equal(http.StatusOK, rr.Code)
}

func (s *ScenarioSuite) TestScenarioA_ActivityLapsesAfterOnePeriod() {
	s.registerMember()

	var view struct {
		Active bool `json:"active"`
	}
	rr := s.do(http.MethodGet, "/v1/membership/participants/"+member.String(), nil, shared.Principal{})
	s.Require().Equal(http.StatusOK, rr.Code)
	s.decode(rr, &view)
	s.True(view.Active)

	s.clock.Advance(membership.DefaultBillingPeriod)
	rr = s.do(http.MethodGet, "/v1/membership/participants/"+member.String(), nil, shared.Principal{})
	s.decode(rr, &view)
	s.False(view.Active)

	rr = s.do(http.MethodPost, "/v1/membership/payments", map[string]any{"payment": "100"}, member)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.decode(rr, &view)
	s.True(view.Active)
}

func (s *ScenarioSuite) TestScenarioB_DepositSkimsAdminFee() {
	rr := s.do(http.MethodPost, "/v1/pool/deposits", map[string]any{"amount": "1000"}, benefactor)
	s.Require().Equal(http.StatusNoContent, rr.Code, rr.Body.String())

	acct := s.account()
	s.Equal(shared.Amount(1000), acct.TotalDeposits)
	s.Equal(shared.Amount(50), acct.TotalAdminFees)
	s.Equal(shared.Amount(950), acct.CurrentBalance)
	s.True(acct.Conserved())

	rr = s.do(http.MethodPost, "/v1/pool/deposits", map[string]any{"amount": "0"}, benefactor)
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Equal("ZeroValue", s.reason(rr))
}

func (s *ScenarioSuite) TestScenarioC_SubmitClaim() {
	s.registerMember()

	rr := s.do(http.MethodPost, "/v1/claims/", map[string]any{
		"amount": "200", "treatment_type": "OUTPATIENT", "patient_code": "P-001",
	}, member)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	var c claims.Claim
	s.decode(rr, &c)
	s.Equal(int64(1), c.ID)
	s.Equal(claims.StatusPending, c.Status)

	rr = s.do(http.MethodPost, "/v1/claims/", map[string]any{
		"amount": "200", "treatment_type": "OUTPATIENT", "patient_code": "P-002",
	}, outsider)
	s.Equal(http.StatusForbidden, rr.Code)
	s.Equal("NotActiveParticipant", s.reason(rr))

	rr = s.do(http.MethodPost, "/v1/claims/", map[string]any{
		"amount": "200", "treatment_type": "OUTPATIENT", "patient_code": "P-003",
	}, shared.Principal{})
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *ScenarioSuite) TestScenarioD_ApprovalPaysFromPool() {
	s.Require().Equal(http.StatusNoContent,
		s.do(http.MethodPost, "/v1/pool/deposits", map[string]any{"amount": "1000"}, benefactor).Code)
	s.registerMember()
	s.approveProvider()
	rr := s.do(http.MethodPost, "/v1/claims/", map[string]any{
		"amount": "200", "treatment_type": "EMERGENCY", "patient_code": "P-001",
	}, member)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	before := s.account().CurrentBalance

	rr = s.do(http.MethodPost, "/v1/claims/1/approval", nil, outsider)
	s.Equal(http.StatusForbidden, rr.Code)
	rr = s.do(http.MethodGet, "/v1/claims/1", nil, shared.Principal{})
	var c claims.Claim
	s.decode(rr, &c)
	s.Equal(claims.StatusPending, c.Status)
	s.Equal(before, s.account().CurrentBalance)

	rr = s.do(http.MethodPost, "/v1/claims/1/approval", nil, provider)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.decode(rr, &c)
	s.Equal(claims.StatusApproved, c.Status)
	s.Equal(claims.PayoutPaid, c.Payout)

	acct := s.account()
	s.Equal(before-200, acct.CurrentBalance)
	s.Equal(shared.Amount(200), acct.TotalClaimsPaid)
	s.True(acct.Conserved())

	credited, err := s.app.Pool.Payouts(context.Background(), member)
	s.Require().NoError(err)
	s.Equal(shared.Amount(200), credited)

	rr = s.do(http.MethodPost, "/v1/claims/1/approval", nil, provider)
	s.Equal(http.StatusConflict, rr.Code)

	s.Contains(s.sink.Types(), events.ClaimApproved)
	s.Contains(s.sink.Types(), events.PoolClaimPaid)
}

func (s *ScenarioSuite) TestScenarioD_ShortfallLeavesClaimPending() {
	s.registerMember()
	s.approveProvider()
	rr := s.do(http.MethodPost, "/v1/claims/", map[string]any{
		"amount": "200", "treatment_type": "INPATIENT", "patient_code": "P-009",
	}, member)
	s.Require().Equal(http.StatusCreated, rr.Code)

	rr = s.do(http.MethodPost, "/v1/claims/1/approval", nil, provider)
	s.Equal(http.StatusUnprocessableEntity, rr.Code)
	s.Equal("InsufficientFunds", s.reason(rr))

	c, err := s.app.Claims.GetClaim(context.Background(), 1)
	s.Require().NoError(err)
	s.Equal(claims.StatusPending, c.Status)
	s.NotContains(s.sink.Types(), events.ClaimApproved)
}

func (s *ScenarioSuite) TestScenarioE_ProviderApprovalIsTerminal() {
	rr := s.do(http.MethodPost, "/v1/membership/providers", nil, provider)
	s.Require().Equal(http.StatusCreated, rr.Code)
	var p membership.Provider
	s.decode(rr, &p)
	s.Equal(membership.ProviderPending, p.State)

	rr = s.do(http.MethodPost, "/v1/membership/providers/"+provider.String()+"/approval", nil, outsider)
	s.Equal(http.StatusForbidden, rr.Code)

	rr = s.do(http.MethodPost, "/v1/membership/providers/"+provider.String()+"/approval", nil, deployer)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.decode(rr, &p)
	s.Equal(membership.ProviderApproved, p.State)

	rr = s.do(http.MethodPost, "/v1/membership/providers/"+provider.String()+"/approval", nil, deployer)
	s.Equal(http.StatusConflict, rr.Code)
}

func (s *ScenarioSuite) TestEventsEndpoint() {
	s.registerMember()
	rr := s.do(http.MethodGet, "/v1/events?type=participant.registered", nil, shared.Principal{})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	var out struct {
		Events []events.Event `json:"events"`
	}
	s.decode(rr, &out)
	s.Require().Len(out.Events, 1)
	s.Equal(member, out.Events[0].Actor)
}

func (s *ScenarioSuite) TestReseedKeepsRevokedGrantRevoked() {
	ctx := context.Background()
	s.Require().NoError(s.app.Access.GrantRole(ctx, deployer, shared.RoleAdmin, outsider))
	s.Require().NoError(s.app.Access.RevokeRole(ctx, deployer, shared.RoleHospital, provider))
	s.Require().NoError(s.app.Access.RevokeRole(ctx, deployer, shared.RoleAdmin, deployer))

	s.Require().NoError(s.app.seed(ctx))

	held, err := s.app.Access.HasRole(ctx, shared.RoleAdmin, deployer)
	s.Require().NoError(err)
	s.False(held, "deployer ADMIN was revoked")
	held, err = s.app.Access.HasRole(ctx, shared.RoleHospital, provider)
	s.Require().NoError(err)
	s.False(held, "provider HOSPITAL was revoked")
}

func (s *ScenarioSuite) TestReseedKeepsRuntimeFee() {
	ctx := context.Background()
	s.Require().NoError(s.app.Membership.SetMonthlyFee(ctx, deployer, membership.TierBasic, 250))

	s.Require().NoError(s.app.seed(ctx))

	fee, err := s.app.Membership.MonthlyFee(ctx, membership.TierBasic)
	s.Require().NoError(err)
	s.Equal(shared.Amount(250), fee)
}

func (s *ScenarioSuite) TestReseedAfterSuperAdminHandover() {
	ctx := context.Background()
	s.Require().NoError(s.app.Access.GrantRole(ctx, deployer, shared.RoleDefaultAdmin, outsider))
	s.Require().NoError(s.app.Access.RenounceRole(ctx, deployer, shared.RoleDefaultAdmin))

	s.Require().NoError(s.app.seed(ctx))

	held, err := s.app.Access.HasRole(ctx, shared.RoleDefaultAdmin, deployer)
	s.Require().NoError(err)
	s.False(held)
	held, err = s.app.Access.HasRole(ctx, shared.RoleDefaultAdmin, outsider)
	s.Require().NoError(err)
	s.True(held)
}

func (s *ScenarioSuite) TestReseedAfterLastSuperAdminRenounces() {
	ctx := context.Background()
	s.Require().NoError(s.app.Access.RenounceRole(ctx, deployer, shared.RoleDefaultAdmin))

	s.Require().NoError(s.app.seed(ctx))

	members, err := s.app.Access.Members(ctx, shared.RoleDefaultAdmin)
	s.Require().NoError(err)
	s.Empty(members)
}

func TestBuildPoolRoutingForwardsFees(t *testing.T) {
	cfg := validConfig()
	cfg.FeeRouting = "pool"
	cfg.FeeBasic = 100
	a, err := Build(context.Background(), &cfg, quietLogger, WithClock(func() time.Time { return scenarioT0 }))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Membership.RegisterParticipant(context.Background(), member, membership.TierBasic, 120)
	require.NoError(t, err)
	acct, err := a.Pool.Account(context.Background())
	require.NoError(t, err)
	assert.Equal(t, shared.Amount(120), acct.TotalDeposits)
	treasury, err := a.Membership.TreasuryTotal(context.Background())
	require.NoError(t, err)
	assert.Zero(t, treasury)
}

func TestBuildIsIdempotentOverSeededStore(t *testing.T) {
	cfg := validConfig()
	cfg.EventSinks = []string{"memory", "leveldb"}
	cfg.EventJournalPath = t.TempDir()
	a, err := Build(context.Background(), &cfg, quietLogger)
	require.NoError(t, err)
	require.NoError(t, a.seed(context.Background()))
	require.NoError(t, a.Close())
}

func TestBuildRejectsPostgresSinkOnMemoryBackend(t *testing.T) {
	cfg := validConfig()
	cfg.EventSinks = []string{"postgres"}
	_, err := Build(context.Background(), &cfg, quietLogger)
	assert.Error(t, err)
}
