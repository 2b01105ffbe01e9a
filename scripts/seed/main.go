package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/healthpool/riskpool/internal/app"
	"github.com/healthpool/riskpool/internal/claims"
	"github.com/healthpool/riskpool/internal/membership"
	"github.com/healthpool/riskpool/internal/shared"
)

// Demo principals. They hold no keys and exist only in seeded databases.
var (
	demoMembers = []struct {
		principal shared.Principal
		tier      membership.Tier
	}{
		{shared.MustPrincipal("0xa000000000000000000000000000000000000001"), membership.TierBasic},
		{shared.MustPrincipal("0xa000000000000000000000000000000000000002"), membership.TierStandard},
		{shared.MustPrincipal("0xa000000000000000000000000000000000000003"), membership.TierPremium},
	}
	demoProvider = shared.MustPrincipal("0xb000000000000000000000000000000000000001")
	demoDonor    = shared.MustPrincipal("0xc000000000000000000000000000000000000001")
)

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	a, err := app.Build(ctx, cfg, app.NewLogger(cfg))
	if err != nil {
		log.Fatalf("build application: %v", err)
	}
	defer a.Close()

	deployer := cfg.Deployer()

	fmt.Println("→ Seeding tier fees...")
	fees := map[membership.Tier]shared.Amount{
		membership.TierBasic:    100,
		membership.TierStandard: 200,
		membership.TierPremium:  350,
	}
	for tier, amount := range fees {
		if err := a.Membership.SetMonthlyFee(ctx, deployer, tier, amount); err != nil {
			log.Fatalf("set fee %s: %v", tier, err)
		}
	}

	fmt.Println("→ Seeding pool deposit...")
	if err := a.Pool.Deposit(ctx, demoDonor, 50_000); err != nil {
		log.Fatalf("deposit: %v", err)
	}

	fmt.Println("→ Seeding participants...")
	for _, m := range demoMembers {
		_, err := a.Membership.RegisterParticipant(ctx, m.principal, m.tier, fees[m.tier])
		if err != nil && !errors.Is(err, membership.ErrAlreadyRegistered) {
			log.Fatalf("register %s: %v", m.principal, err)
		}
	}

	fmt.Println("→ Seeding provider...")
	if err := a.Access.GrantRole(ctx, deployer, shared.RoleHospital, demoProvider); err != nil {
		log.Fatalf("grant hospital: %v", err)
	}
	if _, err := a.Membership.RegisterHealthcareProvider(ctx, demoProvider); err != nil && !errors.Is(err, membership.ErrAlreadyRegistered) {
		log.Fatalf("register provider: %v", err)
	}
	if _, err := a.Membership.ApproveHealthcareProvider(ctx, deployer, demoProvider); err != nil && !errors.Is(err, membership.ErrAlreadyDecided) {
		log.Fatalf("approve provider: %v", err)
	}

	fmt.Println("→ Seeding claims...")
	first, err := a.Claims.SubmitClaim(ctx, demoMembers[0].principal, 1_200, claims.TreatmentOutpatient, "DEMO-001")
	if err != nil {
		log.Fatalf("submit claim: %v", err)
	}
	if _, err := a.Claims.ApproveClaim(ctx, demoProvider, first.ID); err != nil {
		log.Fatalf("approve claim: %v", err)
	}
	second, err := a.Claims.SubmitClaim(ctx, demoMembers[1].principal, 800, claims.TreatmentEmergency, "DEMO-002")
	if err != nil {
		log.Fatalf("submit claim: %v", err)
	}
	if _, err := a.Claims.RejectClaim(ctx, demoProvider, second.ID); err != nil {
		log.Fatalf("reject claim: %v", err)
	}
	if _, err := a.Claims.SubmitClaim(ctx, demoMembers[2].principal, 2_500, claims.TreatmentInpatient, "DEMO-003"); err != nil {
		log.Fatalf("submit claim: %v", err)
	}

	acct, err := a.Pool.VerifyConservation(ctx)
	if err != nil {
		log.Fatalf("verify pool: %v", err)
	}
	fmt.Printf("✓ seed complete: balance=%s deposits=%s paid=%s\n", acct.CurrentBalance, acct.TotalDeposits, acct.TotalClaimsPaid)
}
